package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/PabloGalante/farum-engine/internal/domain"
)

const instructions = `You rate the sentiment of a single message written by a user of a mental well-being companion.
Return a score between -1 (very negative) and 1 (very positive) and a magnitude >= 0 describing how strong
the expressed emotion is regardless of direction. The message may be in any language; the language code is a hint.`

type sentimentResponse struct {
	Score     float64 `json:"score" jsonschema:"required"`
	Magnitude float64 `json:"magnitude" jsonschema:"required"`
}

var sentimentSchema = generateSchema[sentimentResponse]()

// OpenAIAnalyzer implements domain.SentimentAnalyzer with the OpenAI
// Responses API and a strict JSON schema.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

func NewOpenAIAnalyzer(apiKey, model string, opts ...option.RequestOption) *OpenAIAnalyzer {
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &OpenAIAnalyzer{client: &client, model: model}
}

func (a *OpenAIAnalyzer) AnalyzeSentiment(ctx context.Context, text, languageCode string) (domain.Sentiment, error) {
	payload, err := json.Marshal(map[string]string{"language": languageCode, "text": text})
	if err != nil {
		return domain.Sentiment{}, fault.Wrap(err, fctx.With(ctx))
	}

	params := responses.ResponseNewParams{
		Model:           a.model,
		MaxOutputTokens: openai.Int(100),
		Instructions:    openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(string(payload), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "MessageSentiment",
					Schema: sentimentSchema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return domain.Sentiment{}, fault.Wrap(err, fctx.With(ctx), fmsg.With("openai sentiment request"))
	}

	var out sentimentResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.OutputText())), &out); err != nil {
		return domain.Sentiment{}, fault.Wrap(err, fctx.With(ctx), fmsg.With("decoding sentiment"))
	}
	if out.Score < -1 || out.Score > 1 || out.Magnitude < 0 {
		return domain.Sentiment{}, fault.Wrap(
			fmt.Errorf("sentiment out of range: score=%v magnitude=%v", out.Score, out.Magnitude),
			fctx.With(ctx))
	}

	return domain.Sentiment{
		Score:     out.Score,
		Magnitude: out.Magnitude,
		Label:     label(out.Score),
	}, nil
}

func label(score float64) domain.SentimentLabel {
	switch {
	case score > 0:
		return domain.SentimentPositive
	case score < 0:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func generateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	b, err := reflector.Reflect(v).MarshalJSON()
	if err != nil {
		panic(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		panic(err)
	}
	// strict mode rejects the $schema/$id keywords and needs additionalProperties=false
	delete(m, "$schema")
	delete(m, "$id")
	m["additionalProperties"] = false
	return m
}
