package attach

import "github.com/alphabot-ai/fritter/internal/model"

// Kind is the capability set that specializes the generic service for one
// attachment type.
type Kind[P ~string] struct {
	// Name is used in error kinds and metrics, e.g. "Comment".
	Name     string
	Validate func(P) error
	Render   func(v *View, payload P)
}

var CommentKind = Kind[string]{
	Name:     "Comment",
	Validate: ValidateContent,
	Render:   func(v *View, content string) { v.Content = content },
}

var ReactionKind = Kind[model.Emotion]{
	Name:     "Reaction",
	Validate: ValidateEmotion,
	Render:   func(v *View, e model.Emotion) { v.Emotion = string(e) },
}
