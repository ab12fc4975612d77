// Package news implements the news path: extracting the entities and
// sentiment an article mentions, walking the graph outward from each one to
// find a curated "interested" entity within N hops, and assessing the
// impact of the article on every interested entity it reaches.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/graphkeep/graphkeep/pkg/graph"
	"github.com/graphkeep/graphkeep/pkg/llmgateway"
	"github.com/graphkeep/graphkeep/pkg/settings"
)

// maxAttempts and backoffSchedule bound retries on entity extraction and
// impact assessment: three attempts, sleeping 2s after the first failure
// and 4s after the second (the 8s entry is never reached), degrading to an
// empty/neutral result rather than failing the whole article.
const maxAttempts = 3

var backoffSchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// relatedEntity is one entry of an extracted entity's RELATIONSHIPS array.
type relatedEntity struct {
	RelatedEntity string `json:"RELATED_ENTITY"`
	Label         string `json:"LABEL"`
	Relationship  string `json:"RELATIONSHIP"`
}

// extractedEntity is one element of the entity-extraction call's JSON array.
type extractedEntity struct {
	Name                 string          `json:"NAME"`
	Label                string          `json:"LABEL"`
	Industry             string          `json:"INDUSTRY"`
	Sentiment            string          `json:"SENTIMENT"`
	SentimentExplanation string          `json:"SENTIMENT_EXPLANATION"`
	Relationships        []relatedEntity `json:"RELATIONSHIPS"`
}

// Record is the persisted shape of a processed article (ent/schema/newsrecord.go).
type Record struct {
	Date                string
	Title                string
	Text                 string
	URL                  string
	Timestamp            string
	Interested           string
	Paths                []map[string]any
	InterestedEntities   []string
}

// Processor runs one article through extraction, graph lookup, and impact
// assessment.
type Processor struct {
	gateway  *llmgateway.Client
	graph    *graph.Graph
	settings *settings.Store
}

// NewProcessor builds a Processor.
func NewProcessor(gw *llmgateway.Client, g *graph.Graph, s *settings.Store) *Processor {
	return &Processor{gateway: gw, graph: g, settings: s}
}

// ProcessArticle runs the full news pipeline over rawContent, an article
// wrapped in <date>/<title>/<text>/<url> tags.
func (p *Processor) ProcessArticle(ctx context.Context, rawContent string) (*Record, error) {
	n, err := p.settings.GetN(ctx)
	if err != nil {
		return nil, fmt.Errorf("load hop radius: %w", err)
	}

	entitiesJSON := p.extractDataFromArticle(ctx, rawContent)
	var entities []extractedEntity
	if err := json.Unmarshal([]byte(entitiesJSON), &entities); err != nil {
		return nil, fmt.Errorf("parse extracted entities: %w", err)
	}
	uppercaseEntities(entities)

	var pathEntries []map[string]any
	interested := map[string]bool{}

	for _, entity := range entities {
		attrs := map[string]string{"INDUSTRY": entity.Industry}
		contextEdges := relationshipEdges(entity)

		paths, err := p.graph.FindWithinNHops(ctx, entity.Label, entity.Name, attrs, contextEdges, n)
		if err != nil {
			return nil, fmt.Errorf("find paths for %q: %w", entity.Name, err)
		}
		if len(paths) == 0 {
			continue
		}

		rendered := make([]map[string]any, 0, len(paths))
		for _, path := range paths {
			result, impact := p.assessImpact(ctx, rawContent, path.Rendered, path.TerminalEntity, entity.Name)
			rendered = append(rendered, map[string]any{
				"path":              path.Rendered,
				"interested_entity": path.TerminalEntity,
				"impact":            impact,
				"assessment":        result,
			})
			interested[path.TerminalEntity] = true
		}

		pathEntries = append(pathEntries, map[string]any{
			"name":                  entity.Name,
			"sentiment":             entity.Sentiment,
			"sentiment_explanation": entity.SentimentExplanation,
			"paths":                 rendered,
		})
	}

	interestedEntities := make([]string, 0, len(interested))
	for name := range interested {
		interestedEntities = append(interestedEntities, name)
	}

	interestedFlag := "NO"
	if len(pathEntries) > 0 {
		interestedFlag = "YES"
	}

	return &Record{
		Date:               llmgateway.GetTextWithinTags(rawContent, "date"),
		Title:              llmgateway.GetTextWithinTags(rawContent, "title"),
		Text:               llmgateway.GetTextWithinTags(rawContent, "text"),
		URL:                llmgateway.GetTextWithinTags(rawContent, "url"),
		Timestamp:          time.Now().Format("2006-01-02 15:04"),
		Interested:         interestedFlag,
		Paths:              pathEntries,
		InterestedEntities: interestedEntities,
	}, nil
}

// ReprocessInput rebuilds the tagged article body used when re-running an
// already-stored article.
func ReprocessInput(date, title, text, url string) string {
	return fmt.Sprintf("<date>%s</date>\n<title>%s</title>\n<text>%s</text>\n<url>%s</url>", date, title, text, url)
}

func relationshipEdges(e extractedEntity) []string {
	edges := make([]string, 0, len(e.Relationships))
	for _, r := range e.Relationships {
		edges = append(edges, fmt.Sprintf("%s %s %s", e.Name, r.Relationship, r.RelatedEntity))
	}
	return edges
}

func uppercaseEntities(entities []extractedEntity) {
	for i := range entities {
		entities[i].Name = strings.ToUpper(strings.TrimSpace(entities[i].Name))
		for j := range entities[i].Relationships {
			entities[i].Relationships[j].RelatedEntity = strings.ToUpper(strings.TrimSpace(entities[i].Relationships[j].RelatedEntity))
		}
	}
}

const extractSystemPrompt = `Extract out any companies or people mentioned in the article, their sentiment, and their relationships with any entities mentioned in the article. For any attributes that cannot be determined, derive it using context from surrounding text, otherwise return an empty string. Respond with a JSON array of objects with keys NAME, LABEL (COMPANY_OR_PERSON), INDUSTRY, SENTIMENT (POSITIVE, NEUTRAL, or NEGATIVE), SENTIMENT_EXPLANATION, and RELATIONSHIPS (array of {RELATED_ENTITY, LABEL, RELATIONSHIP}), enclosed in <entities></entities> tags.`

// extractDataFromArticle prompts for the article's entities, retrying up to
// maxAttempts times on error and degrading to an empty array rather than
// failing the article.
func (p *Processor) extractDataFromArticle(ctx context.Context, article string) string {
	prompt := fmt.Sprintf("Here is a news article:\n<article>\n%s\n</article>", article)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := p.generate(ctx, extractSystemPrompt, prompt)
		if err == nil {
			raw := llmgateway.GetTextWithinTags(text, "entities")
			if strings.TrimSpace(raw) != "" {
				return llmgateway.CleanJSONString(raw)
			}
			err = fmt.Errorf("no <entities> tag in extraction response")
		}
		log.Printf("news: extraction attempt %d/%d failed: %v", attempt+1, maxAttempts, err)
		if attempt < maxAttempts-1 {
			sleep(ctx, backoffSchedule[attempt])
		}
	}
	return "[]"
}

const impactSystemPromptTemplate = `You will be given a news article, and its connection to an entity. Assess the potential impact of the news article on an interested entity based on its connection, erring risk-adverse and sensitive to negative news.

Here is the news article:
<article>
%s
</article>

Here is the entity mentioned in the news article:
<news_entity>
%s
</news_entity>

Here is the entity of interest:
<interested_entity>
%s
</interested_entity>

Here is how the news entity connects to the entity of interest:
<path>
%s
</path>

1) Print a concise summary of the potential impact to <interested_entity> between <result></result> tags, highlighting the phrases that explain the impact and why using <b></b> tags.
2) Print either POSITIVE, NEGATIVE, or NEUTRAL impact to <interested_entity> between <impact></impact> tags.`

// assessImpact prompts for one path's impact, retrying up to maxAttempts
// times and degrading to a NEUTRAL verdict rather than failing the
// article.
func (p *Processor) assessImpact(ctx context.Context, article, path, interestedEntity, newsEntity string) (result, impact string) {
	prompt := fmt.Sprintf(impactSystemPromptTemplate, article, newsEntity, interestedEntity, path)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		text, err := p.generate(ctx, "", prompt)
		if err == nil {
			impact = llmgateway.GetTextWithinTags(text, "impact")
			result = llmgateway.GetTextWithinTags(text, "result")
			if strings.TrimSpace(impact) != "" {
				return result, impact
			}
			err = fmt.Errorf("no <impact> tag in assessment response")
		}
		log.Printf("news: impact assessment attempt %d/%d failed: %v", attempt+1, maxAttempts, err)
		if attempt < maxAttempts-1 {
			sleep(ctx, backoffSchedule[attempt])
		}
	}
	return "Unable to assess impact due to repeated service errors", "NEUTRAL"
}

func (p *Processor) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	chunks, errs := p.gateway.Generate(ctx, llmgateway.Request{SystemPrompt: systemPrompt, UserPrompt: userPrompt})

	var text strings.Builder
	for c := range chunks {
		if c.Err != nil {
			return "", c.Err
		}
		text.WriteString(c.Text)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return text.String(), nil
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
