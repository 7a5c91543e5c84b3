package stores

import (
	"fmt"

	"github.com/Desarso/docassist/models"
)

// DetectHistoryIssues checks a turn sequence against the shape every chat
// API accepts: user first, strictly alternating roles, complete pairs, and
// no system turns. It returns the issues found, empty if the history is clean.
func DetectHistoryIssues(turns []models.Turn) []string {
	issues := []string{}

	if len(turns) == 0 {
		return issues
	}

	if turns[0].Role != models.RoleUser {
		issues = append(issues, fmt.Sprintf("history starts with %s turn", turns[0].Role))
	}

	for i, t := range turns {
		switch t.Role {
		case models.RoleSystem:
			issues = append(issues, fmt.Sprintf("system turn at index %d", i))
			continue
		case models.RoleUser, models.RoleAssistant:
		default:
			issues = append(issues, fmt.Sprintf("unknown role %q at index %d", t.Role, i))
			continue
		}

		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		if i > 0 && t.Role != want {
			issues = append(issues, fmt.Sprintf("%s turn at index %d, want %s", t.Role, i, want))
		}
	}

	if len(turns)%2 != 0 {
		issues = append(issues, "last user turn has no assistant reply")
	}

	return issues
}

// CheckAlternation returns an InvalidTurn error describing the first issue
// found by DetectHistoryIssues, or nil.
func CheckAlternation(turns []models.Turn) error {
	if issues := DetectHistoryIssues(turns); len(issues) > 0 {
		return fmt.Errorf("%w: %s", models.ErrInvalidTurn, issues[0])
	}
	return nil
}
