package service

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"tasksync/internal/marker"
)

const (
	msgFeedbackTitle    = "Feedback on %s"
	msgFeedbackFallback = "the task"
	msgFeedbackBody     = "How did it go? Rate yourself and add a note after training."
)

var feedbackCatalog = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}
	set(language.English, msgFeedbackTitle, "Feedback on %s")
	set(language.English, msgFeedbackFallback, "the task")
	set(language.English, msgFeedbackBody, msgFeedbackBody)
	set(language.Danish, msgFeedbackTitle, "Feedback på %s")
	set(language.Danish, msgFeedbackFallback, "opgaven")
	set(language.Danish, msgFeedbackBody, "Hvordan gik det? Giv dig selv en vurdering og skriv en note efter træning.")
	return b
}()

// FeedbackText renders the localized title and description of feedback tasks.
type FeedbackText struct {
	printer *message.Printer
}

func NewFeedbackText(locale string) *FeedbackText {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &FeedbackText{printer: message.NewPrinter(tag, message.Catalog(feedbackCatalog))}
}

// Title returns "Feedback on <base>", falling back to a generic noun when
// base is blank.
func (f *FeedbackText) Title(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = f.printer.Sprintf(msgFeedbackFallback)
	}
	return f.printer.Sprintf(msgFeedbackTitle, base)
}

// Description returns the explanatory sentence followed by the marker tag.
func (f *FeedbackText) Description(templateID uuid.UUID) string {
	return f.printer.Sprintf(msgFeedbackBody) + " " + marker.Encode(templateID)
}
