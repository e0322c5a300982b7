package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MarcoPoloResearchLab/cosmodex/internal/neos"
)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeClient) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func testNEO() neos.NEO {
	return neos.NEO{
		Name:         "Bennu",
		Diameter:     123,
		Speed:        8.25,
		MissDistance: 45.5,
		Date:         "2026-08-30",
	}
}

func newTestGenerator(t *testing.T, client Client) *Generator {
	t.Helper()
	generator, err := NewGenerator(GeneratorConfig{Client: client})
	if err != nil {
		t.Fatalf("failed to create generator: %v", err)
	}
	return generator
}

func TestSummarizeUsesClientReply(t *testing.T) {
	client := &fakeClient{reply: "a friendly rock"}
	generator := newTestGenerator(t, client)

	summary := generator.Summarize(context.Background(), testNEO())
	if summary != "a friendly rock" {
		t.Fatalf("unexpected summary: %q", summary)
	}
	if len(client.prompts) != 1 || !strings.Contains(client.prompts[0], "Bennu") {
		t.Fatalf("prompt does not mention the NEO: %v", client.prompts)
	}
}

func TestSummarizeFallsBackOnError(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	generator := newTestGenerator(t, client)

	summary := generator.Summarize(context.Background(), testNEO())
	if summary != fallbackSummary {
		t.Fatalf("expected fallback summary, got %q", summary)
	}
}

func TestFunDescriptionsParsesLabelledLines(t *testing.T) {
	client := &fakeClient{reply: "SIZE: big as a stadium\nSPEED: faster than a rocket\nDISTANCE: far, far away\nDATE: visiting this weekend"}
	generator := newTestGenerator(t, client)

	descriptions := generator.FunDescriptions(context.Background(), testNEO())
	if descriptions["size"] != "big as a stadium" {
		t.Fatalf("unexpected size description: %q", descriptions["size"])
	}
	if descriptions["speed"] != "faster than a rocket" {
		t.Fatalf("unexpected speed description: %q", descriptions["speed"])
	}
	if descriptions["distance"] != "far, far away" {
		t.Fatalf("unexpected distance description: %q", descriptions["distance"])
	}
	if descriptions["date"] != "visiting this weekend" {
		t.Fatalf("unexpected date description: %q", descriptions["date"])
	}
}

func TestFunDescriptionsFallsBackWhenUnparsable(t *testing.T) {
	client := &fakeClient{reply: "no labelled lines here"}
	generator := newTestGenerator(t, client)

	descriptions := generator.FunDescriptions(context.Background(), testNEO())
	if descriptions["size"] != fallbackDescriptions["size"] {
		t.Fatalf("expected fallback descriptions, got %v", descriptions)
	}
}

func TestFunDescriptionsFallsBackOnError(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	generator := newTestGenerator(t, client)

	descriptions := generator.FunDescriptions(context.Background(), testNEO())
	if len(descriptions) != len(fallbackDescriptions) {
		t.Fatalf("expected fallback descriptions, got %v", descriptions)
	}
}

func TestChatIncludesQuestionInPrompt(t *testing.T) {
	client := &fakeClient{reply: "quack! great question"}
	generator := newTestGenerator(t, client)

	reply := generator.Chat(context.Background(), testNEO(), "how fast is it?")
	if reply != "quack! great question" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.Contains(client.prompts[0], "how fast is it?") {
		t.Fatalf("prompt does not carry the question")
	}
}

func TestChatFallsBackOnError(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	generator := newTestGenerator(t, client)

	reply := generator.Chat(context.Background(), testNEO(), "hello?")
	if reply != fallbackChat {
		t.Fatalf("expected fallback chat reply, got %q", reply)
	}
}

func TestDailyBriefingListsEveryNEO(t *testing.T) {
	client := &fakeClient{reply: "what a morning"}
	generator := newTestGenerator(t, client)

	records := []neos.NEO{testNEO(), {Name: "Apophis", Diameter: 370, Speed: 7.5, MissDistance: 10.5, Date: "2026-08-30"}}
	text := generator.DailyBriefing(context.Background(), "Sam", records)
	if text != "what a morning" {
		t.Fatalf("unexpected briefing: %q", text)
	}
	prompt := client.prompts[0]
	if !strings.Contains(prompt, "Bennu") || !strings.Contains(prompt, "Apophis") {
		t.Fatalf("briefing prompt missing NEOs")
	}
	if !strings.Contains(prompt, "Sam") {
		t.Fatalf("briefing prompt missing the recipient name")
	}
}

func TestDailyBriefingFallsBackOnError(t *testing.T) {
	client := &fakeClient{err: errors.New("upstream down")}
	generator := newTestGenerator(t, client)

	text := generator.DailyBriefing(context.Background(), "", nil)
	if text != fallbackBriefing {
		t.Fatalf("expected fallback briefing, got %q", text)
	}
}

func TestUnavailableClientAlwaysFails(t *testing.T) {
	if _, err := (UnavailableClient{}).Complete(context.Background(), "anything"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
