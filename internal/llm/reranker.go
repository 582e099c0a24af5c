package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxRerankDocChars = 200

var indexPattern = regexp.MustCompile(`\d+`)

// SimpleLLMReranker asks the LLM to order documents by relevance. Any
// failure degrades to the original order rather than an error.
type SimpleLLMReranker struct {
	LLM LLMClient
}

func NewSimpleLLMReranker(client LLMClient) *SimpleLLMReranker {
	return &SimpleLLMReranker{LLM: client}
}

func (r *SimpleLLMReranker) Rank(ctx context.Context, query string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 || r.LLM == nil {
		return identity(len(docs)), nil
	}

	var docList strings.Builder
	for i, d := range docs {
		content := d
		if len(content) > maxRerankDocChars {
			content = content[:maxRerankDocChars] + "..."
		}
		fmt.Fprintf(&docList, "[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You are a medical article relevance ranking system.
Patient context: %s

Articles:
%s
Rank the articles above by how useful they are for this patient.
Output ONLY the indices of the articles in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, query, docList.String())

	resp, err := r.LLM.Generate(ctx, prompt)
	if err != nil {
		return identity(len(docs)), nil
	}

	return normalizeIndices(parseIndices(resp), len(docs)), nil
}

func parseIndices(s string) []int {
	matches := indexPattern.FindAllString(s, -1)
	var indices []int
	for _, m := range matches {
		if i, err := strconv.Atoi(m); err == nil {
			indices = append(indices, i)
		}
	}
	return indices
}

// normalizeIndices drops out of range and repeated indices, then appends
// whatever the model left out in original order so every document survives.
func normalizeIndices(indices []int, n int) []int {
	seen := make(map[int]bool, n)
	out := make([]int, 0, n)
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	for i := 0; i < n; i++ {
		if !seen[i] {
			out = append(out, i)
		}
	}
	return out
}

func identity(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}
