package content

import (
	"fmt"
	"strings"

	"github.com/leeaandrob/crecontent/internal/models"
)

// Persona is the expert role every prompt opens with.
const Persona = "You are a commercial real estate expert specializing in multifamily and institutional investment."

// Prompt is a system/user message pair for one completion.
type Prompt struct {
	System string
	User   string
}

const styleGuide = `Writing style:
- Professional but accessible tone with authoritative insights
- Data-driven: cite the figures provided, with their source and date
- Geographic specificity: name cities and markets where it helps the argument
- Use **bold** for key metrics and *italics* for emphasis
- No hashtags, no emojis, no invented statistics`

// BuildPrompt assembles the prompt for one content request. Market and news
// blocks are included only when non-empty.
func BuildPrompt(ct models.ContentType, topic models.Topic, market models.MarketContext, news []models.NewsItem) Prompt {
	name := topic.DisplayName()
	themes := topicThemes(topic)
	minWords, maxWords := ct.WordRange()

	var system strings.Builder
	system.WriteString(Persona)
	system.WriteString("\n\n")
	system.WriteString(styleGuide)
	system.WriteString("\n\nAlways close with this exact line: ")
	system.WriteString(models.Disclaimer)

	var user strings.Builder
	switch ct {
	case models.ContentTypeLong:
		fmt.Fprintf(&user, "Write a comprehensive LinkedIn article about %s.\n\n", name)
		fmt.Fprintf(&user, "Target %d-%d words. Cover the current market analysis, the trends behind it, and the investment implications for CRE professionals and institutional investors.\n\n", minWords, maxWords)
		user.WriteString("Format in Markdown with this structure:\n")
		user.WriteString("1. A '# ' title line\n")
		user.WriteString("2. **Executive Summary** (3-5 bullet points)\n")
		user.WriteString("3. Current Market Environment\n")
		user.WriteString("4. Regional Analysis\n")
		user.WriteString("5. Investment Implications\n")
		user.WriteString("6. Forward-Looking Perspective\n")
		user.WriteString("7. A closing question for discussion\n")
	default:
		fmt.Fprintf(&user, "Create a LinkedIn post about %s.\n\n", name)
		fmt.Fprintf(&user, "Keep it under 300 words (aim for %d-%d) in a professional, engaging tone. Open with a bold hook, support it with data, and end with a thought-provoking question that encourages discussion.\n", minWords, maxWords)
	}

	if themes != "" {
		fmt.Fprintf(&user, "\nKey themes: %s\n", themes)
	}

	if digest := market.Digest(); digest != "" {
		fmt.Fprintf(&user, "\nCurrent market data:\n%s\n", digest)
	}

	if digest := models.DigestNews(news); digest != "" {
		fmt.Fprintf(&user, "\nRecent news:\n%s\n", digest)
	}

	return Prompt{
		System: system.String(),
		User:   strings.TrimRight(user.String(), "\n"),
	}
}

func topicThemes(topic models.Topic) string {
	if info := models.GetTopic(topic); info != nil {
		return info.Themes
	}
	return ""
}
