package store

import (
	"strings"
	"unicode/utf8"
)

// Content size limits.
const (
	maxContentChars = 4000
	maxEmotionChars = 64
	maxTagChars     = 40
	maxTags         = 20
	maxNoteChars    = 2000
)

var mediaTypes = map[string]bool{
	"photo": true,
	"video": true,
	"audio": true,
}

// DepositInput carries the caller-supplied fields of a new deposit or shared
// deposit. Status is deliberately absent: new deposits always start active.
type DepositInput struct {
	Content   string
	Emotion   string
	Tags      []string
	MediaURI  string
	MediaType string
}

// DepositPatch lists the fields mutable after creation. Nil means unchanged.
type DepositPatch struct {
	Content *string
	Emotion *string
	Tags    *[]string
}

// normalize trims and validates the input, returning a sanitized copy.
func (in DepositInput) normalize() (DepositInput, error) {
	content, err := normalizeContent(in.Content)
	if err != nil {
		return in, err
	}
	in.Content = content

	if in.Emotion, err = normalizeEmotion(in.Emotion); err != nil {
		return in, err
	}
	if in.Tags, err = normalizeTags(in.Tags); err != nil {
		return in, err
	}

	in.MediaURI = strings.TrimSpace(in.MediaURI)
	in.MediaType = strings.ToLower(strings.TrimSpace(in.MediaType))
	switch {
	case in.MediaType == "" && in.MediaURI == "":
	case in.MediaType == "":
		return in, invalid("mediaType", "required when mediaUri is set")
	case !mediaTypes[in.MediaType]:
		return in, invalid("mediaType", "must be one of photo, video, audio")
	case in.MediaURI == "":
		return in, invalid("mediaUri", "required when mediaType is set")
	}
	return in, nil
}

func (p DepositPatch) normalize() (DepositPatch, error) {
	if p.Content != nil {
		c, err := normalizeContent(*p.Content)
		if err != nil {
			return p, err
		}
		p.Content = &c
	}
	if p.Emotion != nil {
		e, err := normalizeEmotion(*p.Emotion)
		if err != nil {
			return p, err
		}
		p.Emotion = &e
	}
	if p.Tags != nil {
		t, err := normalizeTags(*p.Tags)
		if err != nil {
			return p, err
		}
		p.Tags = &t
	}
	return p, nil
}

func normalizeContent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", invalid("content", "required")
	}
	if utf8.RuneCountInString(s) > maxContentChars {
		return "", invalid("content", "longer than %d characters", maxContentChars)
	}
	return s, nil
}

func normalizeEmotion(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxEmotionChars {
		return "", invalid("emotion", "longer than %d characters", maxEmotionChars)
	}
	return s, nil
}

// normalizeTags trims each tag, collapses inner whitespace and drops empties.
// Order is preserved and duplicates are kept.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > maxTagChars {
			return nil, invalid("tags", "tag %q longer than %d characters", t, maxTagChars)
		}
		out = append(out, t)
	}
	if len(out) > maxTags {
		return nil, invalid("tags", "at most %d tags", maxTags)
	}
	return out, nil
}

func normalizeNote(s string) (string, error) {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxNoteChars {
		return "", invalid("feedbackNote", "longer than %d characters", maxNoteChars)
	}
	return s, nil
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return invalid("userId", "required")
	}
	return nil
}
