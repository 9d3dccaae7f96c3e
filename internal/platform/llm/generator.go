package llm

import (
	"context"
	"fmt"
	"strings"
)

// CompleterFactory opens a Completer for one API key.
type CompleterFactory func(ctx context.Context, apiKey string) (Completer, error)

// Generator turns problem statements into source code. Errors from the model are
// returned as-is and never retried here.
type Generator struct {
	newCompleter CompleterFactory
}

func NewGenerator(cfg Config) *Generator {
	return &Generator{newCompleter: func(ctx context.Context, apiKey string) (Completer, error) {
		return NewCompleter(ctx, cfg, apiKey)
	}}
}

// NewGeneratorWithFactory is used when the completer comes from elsewhere, e.g. tests.
func NewGeneratorWithFactory(f CompleterFactory) *Generator {
	return &Generator{newCompleter: f}
}

// Generate completes a LeetCode code template in language.
func (g *Generator) Generate(ctx context.Context, apiKey, language, statement, template string) (string, error) {
	return g.run(ctx, apiKey, leetCodePrompt(language, statement, template))
}

// GenerateProgram writes a freestanding C++ program for a Codeforces statement.
func (g *Generator) GenerateProgram(ctx context.Context, apiKey, statement string) (string, error) {
	return g.run(ctx, apiKey, codeforcesPrompt(statement))
}

func (g *Generator) run(ctx context.Context, apiKey, prompt string) (string, error) {
	c, err := g.newCompleter(ctx, apiKey)
	if err != nil {
		return "", err
	}
	defer func() { _ = c.Close() }()

	text, err := c.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return CleanCodeFence(text), nil
}

// CleanCodeFence removes one markdown code fence wrapping text, if present.
func CleanCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	// drop the opening fence line including any language tag
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func leetCodePrompt(language, statement, template string) string {
	return fmt.Sprintf(`You are an expert competitive programmer.
Write a complete, optimized solution for the following LeetCode problem in %s.
The solution typically involves completing a class method.
Output ONLY the code that should go inside the solution editor. Do not include markdown
formatting, code fences or explanations unless they are comments within the code.

Problem:
%s

Code Snippet:
%s

Your Solution:
`, language, statement, template)
}

const cppTemplate = `#include<bits/stdc++.h>
using namespace std;

typedef long long ll;
typedef vector<int> vi;

#define all(x) (x).begin(),(x).end()
#define loop(i, a, b) for(int i=a; i<b; i++)

class Solution {
public:
    void solve(){
        // Your code here
    }
};

int main(){
    ios_base::sync_with_stdio(false);
    cin.tie(NULL);
    int t;
    if (cin >> t) {
        while(t--){
            Solution sol;
            sol.solve();
        }
    }
    return 0;
}`

func codeforcesPrompt(statement string) string {
	return fmt.Sprintf(`You are an expert competitive programmer.
Write a complete, optimized solution for the following Codeforces problem.
The solution MUST follow this exact C++ template, and must read the input format
described by the problem (drop the test-case loop if the problem has a single test):

%s

Output ONLY the code. Do NOT include any markdown formatting, code fences or explanations.

Problem:
%s

Your Solution:
`, cppTemplate, statement)
}
