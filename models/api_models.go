package models

// TurnView is the rendering form of a turn. Image payloads are not echoed
// back to the browser; only their presence and media type are.
type TurnView struct {
	Sequence  int    `json:"sequence"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	HasImage  bool   `json:"has_image,omitempty"`
	ImageType string `json:"image_type,omitempty"`
}

// ViewTurns converts turns to their rendering form, oldest first.
func ViewTurns(turns []Turn) []TurnView {
	views := make([]TurnView, 0, len(turns))
	for i, t := range turns {
		view := TurnView{
			Sequence: i + 1,
			Role:     t.Role,
			Text:     t.PlainText(),
		}
		if img := t.Image(); img != nil {
			view.HasImage = true
			view.ImageType = img.MimeType
		}
		views = append(views, view)
	}
	return views
}
