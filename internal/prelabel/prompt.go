package prelabel

import (
	"fmt"
	"strings"

	"github.com/lajavaness/annotto-sub000/internal/models"
)

const systemInstruction = `You are a pre-annotation assistant for a data labeling platform.
You receive an item's text and the project's task taxonomy.
Suggest candidate annotations strictly limited to the provided task values.
Respond with JSON only, in this shape:
{"classifications": ["task_value"], "ner": {"Category": {"entities": [{"value": "task_value", "start": 0, "end": 10}]}}, "text": {"task_value": "free text"}}
Omit keys you have no suggestion for. Offsets are character positions into the item text.`

func buildPrompt(text string, tasks []*models.Task) string {
	var b strings.Builder
	b.WriteString("Task taxonomy:\n")
	for _, task := range tasks {
		fmt.Fprintf(&b, "- value=%q type=%s category=%q label=%q\n", task.Value, task.Type, task.Category, task.Label)
	}
	b.WriteString("\nItem text:\n")
	b.WriteString(text)
	return b.String()
}
