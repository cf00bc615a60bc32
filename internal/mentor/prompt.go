package mentor

import (
	"regexp"
	"strings"
	"text/template"
)

// promptTemplate is the instruction block sent to the model.
// The numbered "Respond with" list keeps answers short and solution-free.
var promptTemplate = template.Must(template.New("prompt").Parse(
	`You are Gemini acting as a patient Python mentor. {{.MentorInstructions}}

Challenge: {{.ChallengeTitle}}
Brief: {{.Description}}
Success rubric: {{.Rubric}}
Expected output:
{{.ExpectedOutput}}

Learner code:
{{.Code}}

Program stdout:
{{.Stdout}}

Errors or mismatch info:
{{if .Stderr}}{{.Stderr}}{{else}}No runtime error.{{end}}

Respond with:
1. A gentle explanation of what is wrong or missing (max 2 sentences).
2. One actionable hint. No full solutions, no full code snippets. Encourage them to retry.`))

// buildPrompt renders the prompt for req. req must already have its defaults applied.
func buildPrompt(req HintRequest) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, req); err != nil {
		return "", err
	}
	return b.String(), nil
}

var (
	fencedCode = regexp.MustCompile("(?s)```.*?```")
	printCall  = regexp.MustCompile(`(?i)print\s*\(.+\)`)
	paragraphs = regexp.MustCompile(`\n{2,}`)
)

// sanitizeHint keeps the model from handing out answers.
//
//  1. fenced code blocks are removed
//  2. print(...) calls become "use print(..)"
//  3. only the first paragraph survives
//
// It returns "" when nothing usable is left; the caller then falls back to
// fallbackCopy.
func sanitizeHint(text string) string {
	text = fencedCode.ReplaceAllString(text, "")
	text = printCall.ReplaceAllString(text, "use print(..)")
	first := paragraphs.Split(strings.TrimSpace(text), 2)[0]
	return strings.TrimSpace(first)
}

// fallbackCopy is a canned hint chosen from what the program printed.
func fallbackCopy(stdout, stderr string) string {
	switch {
	case stderr != "":
		return "Check the exact error message and verify your loop syntax or indentation."
	case strings.TrimSpace(stdout) == "":
		return "Nothing printed yet. Make sure your loop calls print inside the body."
	default:
		return "Compare your lines with the expected output and adjust the spacing or count."
	}
}
