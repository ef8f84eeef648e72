package prompt

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/newton/internal/models"
)

// ContextTemplate is filled with the document text, the web text and the
// question. Empty sections stay in place.
const ContextTemplate = "File Content: %s\n\nWeb Content: %s\n\nUser Question: %s"

// Text renders the single text block of a text turn.
func Text(t models.TextTurn) string {
	return fmt.Sprintf(ContextTemplate, t.DocumentText, t.WebText, t.Prompt)
}

// DataURI inlines an encoded payload. An empty media type is declared as JPEG.
func DataURI(mediaType, encoded string) string {
	if mediaType == "" {
		mediaType = models.MIMEJPEG
	}
	return fmt.Sprintf("data:%s;base64,%s", mediaType, encoded)
}

// Compose builds the message list sent to the model for one turn.
func Compose(turn models.Turn) []llms.MessageContent {
	switch t := turn.(type) {
	case models.ImageTurn:
		return []llms.MessageContent{{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextContent{Text: t.Prompt},
				llms.ImageURLContent{URL: DataURI(t.MediaType, t.Encoded)},
			},
		}}
	case models.TextTurn:
		return []llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, Text(t)),
		}
	}
	return nil
}
