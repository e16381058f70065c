package quiz

import (
	"fmt"
	"strings"
)

// BloomLevel describes one level of the revised Bloom taxonomy.
type BloomLevel struct {
	Level       Level
	Name        string
	Description string
	Tasks       []string
}

var bloomLevels = [...]BloomLevel{
	{C1, "Remember", "Recall facts and basic concepts from the material.",
		[]string{"define", "list", "recall", "recognize", "repeat"}},
	{C2, "Understand", "Explain ideas or concepts in one's own words.",
		[]string{"explain", "summarize", "classify", "describe", "identify"}},
	{C3, "Apply", "Use information in new situations.",
		[]string{"apply", "execute", "implement", "solve", "demonstrate"}},
	{C4, "Analyze", "Draw connections among ideas and break material into parts.",
		[]string{"differentiate", "organize", "compare", "contrast", "examine"}},
	{C5, "Evaluate", "Justify a stand or decision against criteria.",
		[]string{"appraise", "argue", "judge", "critique", "decide"}},
	{C6, "Create", "Produce new or original work from the material.",
		[]string{"design", "assemble", "construct", "formulate", "develop"}},
}

// Bloom returns the descriptor for a valid level.
func Bloom(l Level) (BloomLevel, bool) {
	if !l.Valid() {
		return BloomLevel{}, false
	}
	return bloomLevels[l-1], true
}

// BloomLevels returns all six descriptors in order.
func BloomLevels() []BloomLevel {
	out := make([]BloomLevel, len(bloomLevels))
	copy(out, bloomLevels[:])
	return out
}

// Describe renders a single line such as "C1 Remember: Recall facts ... Tasks: define, list".
func (b BloomLevel) Describe() string {
	return fmt.Sprintf("%s %s: %s Tasks: %s.", b.Level, b.Name, b.Description, strings.Join(b.Tasks, ", "))
}

// TaxonomyText renders the full C1..C6 taxonomy, one level per line.
func TaxonomyText() string {
	var b strings.Builder
	for i, lvl := range bloomLevels {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(lvl.Describe())
	}
	return b.String()
}
