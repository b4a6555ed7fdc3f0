package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"marketplace-scraper/models"
)

// Strategy is one heuristic for pulling candidate records out of a page.
// Strategies only read the document.
type Strategy interface {
	ID() string
	Attempt(doc *goquery.Document) []models.CandidateRecord
}

const (
	StrategyItemLink     = "item-link"
	StrategyContainer    = "container"
	StrategyPricePattern = "price-pattern"

	minTitleLen = 10
)

// DefaultStrategies returns the built-in strategies for a source in priority
// order: item links, known card containers, then price text.
func DefaultStrategies(src models.Source) []Strategy {
	return []Strategy{
		&ItemLinkStrategy{Source: src, MaxLevels: 8, MinSpans: 5},
		&ContainerStrategy{Source: src},
		&PricePatternStrategy{Source: src, Levels: 3},
	}
}

// ItemLinkStrategy anchors on links to individual listings and climbs to the
// enclosing card.
type ItemLinkStrategy struct {
	Source    models.Source
	MaxLevels int
	MinSpans  int
}

func (s *ItemLinkStrategy) ID() string { return StrategyItemLink }

func (s *ItemLinkStrategy) Attempt(doc *goquery.Document) []models.CandidateRecord {
	if s.Source.ItemLinkPattern == nil {
		return nil
	}
	var out []models.CandidateRecord
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !s.Source.ItemLinkPattern.MatchString(href) {
			return
		}
		link := resolveLink(s.Source.BaseURL, href)
		key := models.NormaliseLink(link)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		card := climb(a, s.MaxLevels, func(sel *goquery.Selection) bool {
			return sel.Find("span").Length() > s.MinSpans
		})
		texts := leafTexts(card)
		cardText := strings.Join(texts, " ")
		if s.Source.Skips(cardText) {
			return
		}

		title, _ := a.Attr("aria-label")
		if strings.TrimSpace(title) == "" {
			title = firstSpanTitle(card)
		}
		if strings.TrimSpace(title) == "" {
			title = longestText(texts)
		}

		out = append(out, models.CandidateRecord{
			Title:        title,
			RawPriceText: firstPrice(cardText, s.Source.PricePatterns),
			RawDateText:  findDateText(cardText),
			ItemLink:     link,
			StrategyID:   StrategyItemLink,
		})
	})
	return out
}

// ContainerStrategy reads cards matched by the source's container selectors.
// The first selector that matches anything is used.
type ContainerStrategy struct {
	Source models.Source
}

func (s *ContainerStrategy) ID() string { return StrategyContainer }

func (s *ContainerStrategy) Attempt(doc *goquery.Document) []models.CandidateRecord {
	for _, selector := range s.Source.ContainerSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		var out []models.CandidateRecord
		cards.Each(func(_ int, card *goquery.Selection) {
			// Wrappers matching the same selector would swallow every card.
			if card.Find(selector).Length() > 0 {
				return
			}
			texts := leafTexts(card)
			cardText := strings.Join(texts, " ")
			if s.Source.Skips(cardText) {
				return
			}
			title := s.title(card)
			if title == "" {
				title = longestText(texts)
			}
			if title == "" {
				return
			}
			out = append(out, models.CandidateRecord{
				Title:        title,
				RawPriceText: firstPrice(cardText, s.Source.PricePatterns),
				RawDateText:  findDateText(cardText),
				ItemLink:     s.itemLink(card),
				StrategyID:   StrategyContainer,
			})
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func (s *ContainerStrategy) title(card *goquery.Selection) string {
	for _, sel := range s.Source.TitleSelectors {
		if t := models.NormaliseText(card.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

func (s *ContainerStrategy) itemLink(card *goquery.Selection) string {
	if s.Source.ItemLinkPattern == nil {
		return ""
	}
	var link string
	card.Find("a[href]").AddSelection(card.Filter("a[href]")).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if s.Source.ItemLinkPattern.MatchString(href) {
			link = resolveLink(s.Source.BaseURL, href)
			return false
		}
		return true
	})
	return link
}

// PricePatternStrategy finds price-looking text and treats a fixed ancestor
// as the listing card. It is the last resort for pages with no usable markup.
type PricePatternStrategy struct {
	Source models.Source
	Levels int
}

func (s *PricePatternStrategy) ID() string { return StrategyPricePattern }

func (s *PricePatternStrategy) Attempt(doc *goquery.Document) []models.CandidateRecord {
	var out []models.CandidateRecord
	doc.Find("body *").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 || skipNode(el) {
			return
		}
		price := firstPrice(el.Text(), s.Source.PricePatterns)
		if price == "" {
			return
		}
		card := el
		for i := 0; i < s.Levels; i++ {
			parent := card.Parent()
			if parent.Length() == 0 || goquery.NodeName(parent) == "body" {
				break
			}
			card = parent
		}
		texts := leafTexts(card)
		title := longestText(texts)
		if len(title) <= minTitleLen {
			return
		}
		out = append(out, models.CandidateRecord{
			Title:        title,
			RawPriceText: price,
			RawDateText:  findDateText(strings.Join(texts, " ")),
			ItemLink:     (&ContainerStrategy{Source: s.Source}).itemLink(card),
			StrategyID:   StrategyPricePattern,
		})
	})
	return out
}

// climb returns sel or the first of at most maxLevels ancestors satisfying
// ok, or the highest one reached.
func climb(sel *goquery.Selection, maxLevels int, ok func(*goquery.Selection) bool) *goquery.Selection {
	cur := sel
	if ok(cur) {
		return cur
	}
	for i := 0; i < maxLevels; i++ {
		parent := cur.Parent()
		if parent.Length() == 0 || goquery.NodeName(parent) == "body" {
			break
		}
		cur = parent
		if ok(cur) {
			break
		}
	}
	return cur
}

// leafTexts returns the trimmed text of every element under sel that has no
// element children, in document order.
func leafTexts(sel *goquery.Selection) []string {
	var texts []string
	collect := func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 || skipNode(el) {
			return
		}
		if t := models.NormaliseText(el.Text()); t != "" {
			texts = append(texts, t)
		}
	}
	if sel.Children().Length() == 0 {
		sel.Each(collect)
		return texts
	}
	sel.Find("*").Each(collect)
	return texts
}

func skipNode(el *goquery.Selection) bool {
	switch goquery.NodeName(el) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

// firstSpanTitle returns the first span whose text is long enough and is not
// just a price.
func firstSpanTitle(card *goquery.Selection) string {
	var title string
	card.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		if span.Children().Length() > 0 {
			return true
		}
		t := models.NormaliseText(span.Text())
		if len(t) > minTitleLen && !isBarePrice(t) {
			title = t
			return false
		}
		return true
	})
	return title
}

// longestText picks the longest text that is not a bare price or a posting
// age.
func longestText(texts []string) string {
	var best string
	for _, t := range texts {
		if isBarePrice(t) || findDateText(t) == t {
			continue
		}
		if len(t) > len(best) {
			best = t
		}
	}
	return best
}

func resolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}
