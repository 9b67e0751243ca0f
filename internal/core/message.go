package core

// FormatMessage renders a chat line as other members see it.
func FormatMessage(author, text string) string {
	return "[" + author + "]: " + text
}
