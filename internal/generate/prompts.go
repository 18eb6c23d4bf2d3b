package generate

import (
	"fmt"
	"strings"

	"autoblogger/internal/domain"
)

// wordTargets maps a post length class to the target word range quoted
// in the generation prompt.
var wordTargets = map[domain.PostLength]string{
	domain.LengthShort:    "500-700",
	domain.LengthMedium:   "1000-1500",
	domain.LengthLong:     "2000-3000",
	domain.LengthVeryLong: "3000-5000",
}

func buildSystemPrompt(agent domain.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in: %s", agent.Expertise)
	if agent.Persona != "" {
		fmt.Fprintf(&b, "\n\nYour persona:\n%s", agent.Persona)
	}
	fmt.Fprintf(&b, "\n\nWriting tone: %s", agent.Tone)
	b.WriteString(`

WRITING RULES:

1. SEO structure:
   - Use a heading hierarchy (<h2>, <h3>)
   - The main keyword must appear within the first 100 words
   - Keep paragraphs to 3-4 sentences
   - Use <ul>/<li> lists for scannability

2. Content quality:
   - Write naturally, avoid keyword stuffing
   - Use synonyms and related terms
   - Include concrete examples and data

3. Engagement:
   - Open with a strong hook
   - Add practical tips
   - Close with a clear summary`)
	return b.String()
}

func buildPostPrompt(topic, keyword string, length domain.PostLength, sourcesContent string) string {
	target, ok := wordTargets[length]
	if !ok {
		target = wordTargets[domain.LengthMedium]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a professional blog article.\n\nTOPIC: %s", topic)
	if keyword != "" {
		fmt.Fprintf(&b, "\nMAIN SEO KEYWORD: %s", keyword)
	}
	fmt.Fprintf(&b, "\nTARGET LENGTH: %s words\n", target)

	if sourcesContent != "" {
		fmt.Fprintf(&b, "\nSOURCE MATERIAL:\n%s\n\nUse the sources for facts and inspiration, but write in your own words.\n", sourcesContent)
	}

	b.WriteString(`
STRUCTURE:
- 3-5 sections introduced with <h2>, subsections with <h3>
- Lists with <ul><li> where steps or options are enumerated
- A short closing summary section`)

	return b.String()
}

func buildMetaTitlePrompt(content, keyword string) string {
	var b strings.Builder
	b.WriteString("Write an SEO meta title (maximum 70 characters) for the article below.")
	if keyword != "" {
		fmt.Fprintf(&b, " Include the keyword %q.", keyword)
	}
	b.WriteString(" Reply with the title only.\n\nARTICLE:\n")
	b.WriteString(truncate(content, 3000))
	return b.String()
}

func buildMetaDescriptionPrompt(content, keyword string) string {
	var b strings.Builder
	b.WriteString("Write an SEO meta description (120-160 characters) for the article below.")
	if keyword != "" {
		fmt.Fprintf(&b, " Include the keyword %q.", keyword)
	}
	b.WriteString(" Reply with the description only.\n\nARTICLE:\n")
	b.WriteString(truncate(content, 3000))
	return b.String()
}

func buildKeywordsPrompt(content string) string {
	return "Extract the 5-10 most important SEO keywords from the article below. " +
		`Reply with a JSON array only, e.g. ["keyword one", "keyword two"].` +
		"\n\nARTICLE:\n" + truncate(content, 3000)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
