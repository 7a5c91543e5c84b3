package docassist

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/Desarso/docassist/models"
)

type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	var err error
	s.origDir, err = os.Getwd()
	s.Require().NoError(err)

	s.tempDir = s.T().TempDir()
	s.Require().NoError(os.Chdir(s.tempDir))

	unset := []string{"DOCASSIST_PROVIDER_NAME", "DOCASSIST_PROVIDER_API_KEY"}
	for _, provider := range ProviderNames() {
		unset = append(unset, APIKeyEnv(provider))
	}
	for _, key := range unset {
		// Setenv restores the original value after the test.
		s.T().Setenv(key, "")
		s.Require().NoError(os.Unsetenv(key))
	}
}

func (s *ConfigTestSuite) TearDownTest() {
	if s.origDir != "" {
		_ = os.Chdir(s.origDir)
	}
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := LoadConfig("")
	s.Require().NoError(err)

	s.Equal("openai", cfg.Provider.Name)
	s.Equal(":8080", cfg.Server.Addr)
	s.Equal(ProfileTutor, cfg.Server.DefaultProfile)
	s.Equal(time.Hour, cfg.Server.SessionIdleTTL)
	s.Zero(cfg.Server.CompletionTimeout)
	s.Equal("@every 1m", cfg.Server.JanitorSchedule)
	s.Equal("German", cfg.Summary.Language)
	s.False(cfg.Traces.Enabled())

	err = cfg.Validate()
	s.ErrorIs(err, models.ErrConfiguration)
	s.Contains(err.Error(), "OPENAI_API_KEY")
}

func (s *ConfigTestSuite) TestProviderKeyFromEnvironment() {
	s.T().Setenv("DOCASSIST_PROVIDER_NAME", "groq")
	s.T().Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfig("")
	s.Require().NoError(err)
	s.Equal("groq", cfg.Provider.Name)
	s.Equal("gsk-test", cfg.Provider.APIKey)
	s.NoError(cfg.Validate())
}

func (s *ConfigTestSuite) TestDotEnvFile() {
	s.Require().NoError(os.WriteFile(filepath.Join(s.tempDir, ".env"), []byte("OPENAI_API_KEY=sk-from-dotenv\n"), 0o600))
	s.T().Cleanup(func() { os.Unsetenv("OPENAI_API_KEY") })

	cfg, err := LoadConfig("")
	s.Require().NoError(err)
	s.Equal("sk-from-dotenv", cfg.Provider.APIKey)
}

func (s *ConfigTestSuite) TestYAMLFile() {
	path := filepath.Join(s.tempDir, "docassist.yaml")
	yaml := `
provider:
  name: anthropic
  api_key: sk-ant-test
  model: claude-test
server:
  addr: ":9090"
  session_idle_ttl: 30m
  completion_timeout: 90s
traces:
  type: sqlite
  connection: traces.db
profiles:
  tutor:
    temperature: 0.2
    max_document_chars: 5000
`
	s.Require().NoError(os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadConfig(path)
	s.Require().NoError(err)
	s.Equal("anthropic", cfg.Provider.Name)
	s.Equal("sk-ant-test", cfg.Provider.APIKey)
	s.Equal(":9090", cfg.Server.Addr)
	s.Equal(30*time.Minute, cfg.Server.SessionIdleTTL)
	s.Equal(90*time.Second, cfg.Server.CompletionTimeout)
	s.True(cfg.Traces.Enabled())
	s.NoError(cfg.Validate())

	tutor, err := cfg.Profile(ProfileTutor)
	s.Require().NoError(err)
	s.Equal("claude-test", tutor.Params.Model)
	s.Require().NotNil(tutor.Params.Temperature)
	s.Equal(0.2, *tutor.Params.Temperature)
	s.Equal(5000, tutor.Policy.MaxDocumentChars)
}

func (s *ConfigTestSuite) TestMissingFile() {
	_, err := LoadConfig(filepath.Join(s.tempDir, "missing.yaml"))
	s.ErrorIs(err, models.ErrConfiguration)
}

func TestValidate(t *testing.T) {
	cfg := NewConfig().WithAPIKey("sk")
	require.NoError(t, cfg.Validate())

	assert.ErrorIs(t, NewConfig().WithProvider("mystery").WithAPIKey("sk").Validate(), models.ErrConfiguration)

	bad := NewConfig().WithAPIKey("sk")
	bad.Server.DefaultProfile = "poet"
	assert.ErrorIs(t, bad.Validate(), models.ErrConfiguration)

	bad = NewConfig().WithAPIKey("sk")
	bad.Profiles["poet"] = ProfileOverride{Model: "x"}
	assert.ErrorIs(t, bad.Validate(), models.ErrConfiguration)
}

func TestProfiles(t *testing.T) {
	cfg := NewConfig()
	assert.Equal(t, []string{ProfileSummary, ProfileTutor, ProfileVision}, ProfileNames())

	tutor, err := cfg.Profile("")
	require.NoError(t, err)
	assert.Equal(t, ProfileTutor, tutor.Name)
	assert.True(t, tutor.MultiTurn)
	assert.Equal(t, "gpt-4o", tutor.Params.Model)
	assert.Equal(t, 0.6, *tutor.Params.Temperature)
	assert.True(t, tutor.AcceptsType(models.DeclaredPDF))
	assert.False(t, tutor.ReferencesCutoff)
	assert.True(t, tutor.RetainAttachments)

	vision, err := cfg.Profile(ProfileVision)
	require.NoError(t, err)
	assert.False(t, vision.MultiTurn)
	assert.False(t, vision.AcceptsType(models.DeclaredPDF))
	assert.True(t, vision.RetainAttachments)

	summary, err := cfg.Profile(ProfileSummary)
	require.NoError(t, err)
	assert.True(t, summary.ReferencesCutoff)
	assert.Equal(t, 0.0, *summary.Params.Temperature)
	assert.True(t, summary.RetainAttachments)

	off := false
	cfg.Profiles[ProfileSummary] = ProfileOverride{ReferencesCutoff: &off, Model: "gpt-4o-mini"}
	summary, err = cfg.Profile(ProfileSummary)
	require.NoError(t, err)
	assert.False(t, summary.ReferencesCutoff)
	assert.Equal(t, "gpt-4o-mini", summary.Params.Model)

	cfg.Profiles[ProfileTutor] = ProfileOverride{RetainAttachments: &off}
	tutor, err = cfg.Profile(ProfileTutor)
	require.NoError(t, err)
	assert.False(t, tutor.RetainAttachments)

	_, err = cfg.Profile("poet")
	assert.Error(t, err)
}
