package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JaimeStill/tally/pkg/mapping"
)

const instructions = `You are a data integration analyst mapping spreadsheet column headers onto a canonical schema.

For each header listed under "headers", decide which canonical field (if any) the column holds. Use the header text, the canonical field names and aliases, and the sample values. Sample values are masked: upper-case letters appear as A, lower-case letters as a, and digits as 0, so judge the shape of the data rather than its content.

Only map a header to a field that appears in "canonicalFields". When no field fits, map it to null. Never map two headers to the same field unless the data clearly repeats.`

const responseSpec = `Respond with a JSON array matching this exact structure:

[
  {
    "incoming": "<header exactly as given>",
    "mapTo": "<canonical field name or null>",
    "nameConfidence": 0.0,
    "typeConfidence": 0.0,
    "rationale": "<short explanation>"
  }
]

Field constraints:
- incoming: One of the provided headers, unchanged.
- mapTo: The canonical field name, or null when nothing fits.
- nameConfidence: 0 to 1, how sure you are the header means the field.
- typeConfidence: 0 to 1, how well the sample shapes fit the field type.

Behavioral constraints:
- Always respond with valid JSON, no markdown fencing
- Include one entry per header`

// ComposePrompt joins the assistant instructions, the response contract,
// and the serialized request.
func ComposePrompt(req mapping.AssistRequest) (string, error) {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize assist request: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\n")
	sb.WriteString(responseSpec)
	sb.WriteString("\n\nMapping request:\n\n")
	sb.Write(data)

	return sb.String(), nil
}
