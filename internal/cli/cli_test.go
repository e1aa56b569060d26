package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"legal-assistant/internal/app"
	"legal-assistant/internal/config"
	"legal-assistant/internal/domain"
	"legal-assistant/internal/indexer"
	"legal-assistant/internal/rag"
	"legal-assistant/internal/service"
	"legal-assistant/internal/service/mocks"
)

func init() {
	color.NoColor = true
}

func sampleResponse() rag.ChatResponse {
	category := domain.CategoryImmigration
	return rag.ChatResponse{
		Answer: "Wniosek składa się w urzędzie wojewódzkim [1].",
		Sources: []rag.Citation{{
			Index:          1,
			ID:             "imm-001",
			Title:          "Karta pobytu",
			Organization:   "UdSC",
			URL:            "https://www.gov.pl/web/udsc",
			LastVerified:   "2024-03-15",
			RelevanceScore: 0.82,
			Category:       domain.CategoryImmigration,
		}},
		Confidence: 0.748,
		Category:   &category,
	}
}

func TestPrintAnswer(t *testing.T) {
	var buf bytes.Buffer
	resp := sampleResponse()
	resp.Debug = &rag.DebugInfo{TierUsed: rag.TierStrict, NormalizedQuery: "karta pobytu"}

	require.NoError(t, printAnswer(&buf, resp))

	out := buf.String()
	assert.Contains(t, out, resp.Answer)
	assert.Contains(t, out, "Confidence: 0.748   Category: immigration")
	assert.Contains(t, out, "[1] Karta pobytu - UdSC (verified 2024-03-15)")
	assert.Contains(t, out, "https://www.gov.pl/web/udsc")
	assert.Contains(t, out, `"tier_used": 1`)
}

func TestPrintAnswer_NoSources(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printAnswer(&buf, rag.ChatResponse{Answer: rag.NoKnowledgeAnswer}))

	out := buf.String()
	assert.Contains(t, out, "Category: none")
	assert.NotContains(t, out, "Sources")
	assert.NotContains(t, out, "Debug")
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &indexer.SeedReport{
		DocumentsIndexed:   3,
		DocumentsUnchanged: 2,
		DocumentsFailed:    1,
		ChunksEmbedded:     9,
		CategoryCounts:     map[string]int{"immigration": 4, "employment": 1},
		ChunkTokenStats:    indexer.ChunkTokenStats{Min: 40, Max: 300, Mean: 120.5, P95: 280},
		ChunkerVersion:     indexer.ChunkerVersion,
		IndexVersion:       "0123456789abcdef",
	}, 2)

	out := buf.String()
	assert.Contains(t, out, "Documents indexed:   3")
	assert.Contains(t, out, "Documents failed:    1")
	assert.Contains(t, out, "Documents skipped:   2 (invalid)")
	assert.Contains(t, out, "min 40, mean 120.50, p95 280, max 300")
	assert.Less(t, strings.Index(out, "employment:"), strings.Index(out, "immigration:"))
}

func newTestRoot(t *testing.T, chat service.ChatService) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")

	root := newRootCommand(&options{
		build: func(cmd *cobra.Command, cfg *config.Config) (*app.App, error) {
			return &app.App{Config: cfg, ChatService: chat}, nil
		},
	})
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	return root, &out
}

func TestAskCommand(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatService(ctrl)

	topK := 8
	chat.EXPECT().
		ProcessChat(gomock.Any(), service.ChatRequest{
			Query:          "Jak uzyskać kartę pobytu?",
			CategoryFilter: "immigration",
			TopK:           &topK,
		}).
		Return(sampleResponse(), nil)

	root, out := newTestRoot(t, chat)
	root.SetArgs([]string{"ask", "Jak", "uzyskać", "kartę", "pobytu?", "--category", "immigration", "--top-k", "8"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "[1] Karta pobytu - UdSC")
}

func TestAskCommand_JSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatService(ctrl)
	chat.EXPECT().ProcessChat(gomock.Any(), service.ChatRequest{Query: "PESEL"}).Return(sampleResponse(), nil)

	root, out := newTestRoot(t, chat)
	root.SetArgs([]string{"ask", "PESEL", "--json"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"relevance_score": 0.82`)
}

func TestAskCommand_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockChatService(ctrl)
	chat.EXPECT().ProcessChat(gomock.Any(), gomock.Any()).
		Return(rag.ChatResponse{}, &service.ValidationError{Field: "category_filter", Message: "unknown category"})

	root, _ := newTestRoot(t, chat)
	root.SetArgs([]string{"ask", "PESEL", "--category", "astrology"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	root, _ := newTestRoot(t, nil)
	root.SetArgs([]string{"ask"})

	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestSeedCommand_MissingDirectory(t *testing.T) {
	root, _ := newTestRoot(t, nil)
	root.SetArgs([]string{"seed", t.TempDir() + "/missing"})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "path does not exist")
}

func TestSeedCommand_NoDocuments(t *testing.T) {
	root, _ := newTestRoot(t, nil)
	root.SetArgs([]string{"seed", t.TempDir()})

	err := root.ExecuteContext(context.Background())
	assert.ErrorContains(t, err, "no documents found")
}
