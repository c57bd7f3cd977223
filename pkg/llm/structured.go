package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fusionworks/fusionai/pkg/jsonclean"
)

// InvokeStructured performs a completion that must yield a JSON document,
// strips any markdown fencing, validates the document against schema when one
// is given, and unmarshals it into out.
func InvokeStructured(ctx context.Context, client Client, req Request, schema string, out any) error {
	resp, err := client.Invoke(ctx, req)
	if err != nil {
		return err
	}

	cleaned := jsonclean.Clean(resp.Content)

	if schema != "" {
		result, err := gojsonschema.Validate(
			gojsonschema.NewStringLoader(schema),
			gojsonschema.NewStringLoader(cleaned))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				details = append(details, e.String())
			}
			return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(details, "; "))
		}
	}

	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}
