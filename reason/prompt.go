package reason

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/specdrift/diff"
)

// systemPrompt frames the reconciliation task. The rules bias the model
// toward NEEDS_REVIEW so a wrong verdict never silently rewrites a
// contract.
const systemPrompt = `You are an API contract reconciliation expert. You are given an OpenAPI fragment, a sample of the live API's response, and a list of detected discrepancies. Decide whether:

1. UPDATE_SPEC - the specification should be amended to match observed behavior
2. API_BUG - the API regressed and the specification is correct
3. NEEDS_REVIEW - the evidence is ambiguous and a human must decide

RULES:
- Be CONSERVATIVE. Prefer NEEDS_REVIEW when unsure.
- Consider BACKWARD COMPATIBILITY. Narrowing changes require high confidence.
- Never invent undocumented business logic.
- Propose MINIMAL edits only - never refactor or beautify the document.
- Confidence must exceed 0.85 for UPDATE_SPEC recommendations.

For UPDATE_SPEC, express every edit as an RFC 6901 JSON Pointer operation against the document root. Allowed change_type values: ADD_ENUM_VALUE, MAKE_OPTIONAL, TYPE_WIDENING, ADD_FIELD, REMOVE_REQUIRED, DOCUMENT_ERROR, ADD_EXAMPLE.

Respond with a single JSON object and no prose outside it:
{
  "classification": "UPDATE_SPEC" | "API_BUG" | "NEEDS_REVIEW",
  "confidence": 0.0-1.0,
  "notes": "short reasoning",
  "changes": [
    {
      "target": "/paths/...",
      "op": "add" | "replace" | "remove",
      "value": <new value, omit for remove>,
      "rationale": "why",
      "backward_compatible": true | false,
      "change_type": "..."
    }
  ]
}`

// buildPrompt renders the user message for one drifted check.
func buildPrompt(endpoint string, fragment []byte, summary diff.Summary, sample any) string {
	var b strings.Builder

	b.WriteString("## Endpoint\n")
	b.WriteString(endpoint)
	b.WriteString("\n\n## Current Contract Fragment\n```yaml\n")
	b.Write(fragment)
	if len(fragment) > 0 && fragment[len(fragment)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.WriteString("```\n\n## Observed Response Sample\n```json\n")
	b.WriteString(formatSample(sample))
	b.WriteString("\n```\n\n")

	fmt.Fprintf(&b, "## Detected Anomalies (%d total)\n", summary.Total)
	for i, a := range summary.Anomalies {
		fmt.Fprintf(&b, "%d. [%s] at %s\n   Expected: %s\n   Observed: %s\n",
			i+1, a.Kind, a.Location, a.Expected, a.Observed)
	}

	b.WriteString("\n## Task\nClassify the drift and, for UPDATE_SPEC, propose the minimal pointer edits. Consider backward compatibility and real-world API evolution patterns.")
	return b.String()
}

func formatSample(sample any) string {
	if sample == nil {
		return "null"
	}
	data, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", sample)
	}
	return string(data)
}
