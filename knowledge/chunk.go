package knowledge

import "strings"

// Chunk is one indexed slice of a document.
type Chunk struct {
	ID       string `json:"id"`
	Document string `json:"document"`
	Section  string `json:"section"`
	Content  string `json:"content"`
}

// splitSections breaks markdown text at headings. Text before the
// first heading becomes an unnamed section.
func splitSections(text string) []struct{ title, body string } {
	var out []struct{ title, body string }
	title := ""
	var body []string

	flush := func() {
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if content != "" {
			out = append(out, struct{ title, body string }{title, content})
		}
		body = body[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "#") {
			flush()
			title = strings.TrimSpace(strings.TrimLeft(line, "# "))
			continue
		}
		body = append(body, line)
	}
	flush()
	return out
}

// chunkText splits a section body into pieces of at most chunkSize
// characters, breaking at paragraph boundaries where possible.
func chunkText(text string, chunkSize int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		// A single oversized paragraph is split hard.
		for len(p) > chunkSize {
			cut := strings.LastIndex(p[:chunkSize], " ")
			if cut <= 0 {
				cut = chunkSize
			}
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, strings.TrimSpace(p[:cut]))
			p = strings.TrimSpace(p[cut:])
		}

		if current.Len() > 0 && current.Len()+len(p)+2 > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
