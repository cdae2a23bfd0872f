package model

import (
	"sort"
	"strings"
	"time"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	DateJoined   time.Time
}

type Freet struct {
	ID           string
	AuthorID     string
	Content      string
	DateCreated  time.Time
	DateModified time.Time
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

type Follows struct {
	Followers []string
	Following []string
}

// Attachment is a user-authored record hung off a single freet. P is the
// payload carried by the concrete kind: free text for comments, an Emotion
// for reactions.
type Attachment[P ~string] struct {
	ID           string
	AuthorID     string
	FreetID      string
	Payload      P
	DateCreated  time.Time
	DateModified time.Time
}

type Comment = Attachment[string]

type Reaction = Attachment[Emotion]

type Emotion string

const (
	EmotionAngry Emotion = "angry"
	EmotionHaha  Emotion = "haha"
	EmotionLike  Emotion = "like"
	EmotionLove  Emotion = "love"
	EmotionSad   Emotion = "sad"
	EmotionWow   Emotion = "wow"
)

// Emotions is the closed set of accepted reaction values, sorted.
var Emotions = []Emotion{EmotionAngry, EmotionHaha, EmotionLike, EmotionLove, EmotionSad, EmotionWow}

func (e Emotion) Valid() bool {
	i := sort.Search(len(Emotions), func(i int) bool { return Emotions[i] >= e })
	return i < len(Emotions) && Emotions[i] == e
}

// EmotionList renders the enumeration space separated, the form used by
// validator's oneof tag.
func EmotionList() string {
	names := make([]string, len(Emotions))
	for i, e := range Emotions {
		names[i] = string(e)
	}
	return strings.Join(names, " ")
}
