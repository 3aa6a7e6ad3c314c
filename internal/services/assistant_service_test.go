package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Assist/internal/core"
	"github.com/markdave123-py/Assist/internal/core/prompt"
	"github.com/markdave123-py/Assist/internal/core/retrieval"
	"github.com/markdave123-py/Assist/internal/models"
)

// --- Mock implementations ---

// mockModel implements core.ModelClient for testing.
type mockModel struct {
	mu sync.Mutex

	completion  string
	blockingErr error

	chunks    []string
	streamErr error // sent as the final chunk
	openErr   error // returned by CompleteStreaming
	hang      bool  // never finish the stream

	envelopes []core.Envelope
	stopped   chan struct{}
}

func (m *mockModel) record(env core.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, env)
}

func (m *mockModel) lastEnvelope(t *testing.T) core.Envelope {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.envelopes)
	return m.envelopes[len(m.envelopes)-1]
}

func (m *mockModel) CompleteBlocking(_ context.Context, env core.Envelope) (models.Completion, error) {
	m.record(env)
	if m.blockingErr != nil {
		return models.Completion{}, m.blockingErr
	}
	return models.Completion{FullText: m.completion}, nil
}

func (m *mockModel) CompleteStreaming(ctx context.Context, env core.Envelope) (<-chan core.Chunk, error) {
	m.record(env)
	if m.openErr != nil {
		return nil, m.openErr
	}
	stopped := make(chan struct{})
	m.mu.Lock()
	m.stopped = stopped
	m.mu.Unlock()

	out := make(chan core.Chunk)
	go func() {
		defer close(stopped)
		defer close(out)
		send := func(c core.Chunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, d := range m.chunks {
			if !send(core.Chunk{Delta: d}) {
				return
			}
		}
		if m.hang {
			<-ctx.Done()
			return
		}
		if m.streamErr != nil {
			send(core.Chunk{Err: m.streamErr})
		}
	}()
	return out, nil
}

// mockEmbedder implements core.EmbeddingClient for testing.
type mockEmbedder struct {
	vector models.Vector
	err    error
	texts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (models.Vector, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

// mockStore implements core.KnowledgeStore for testing.
type mockStore struct {
	saved    []models.KnowledgeEntry
	saveErr  error
	results  []models.KnowledgeEntry
	queryErr error
}

func (m *mockStore) Save(_ context.Context, e models.KnowledgeEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, e)
	return nil
}

func (m *mockStore) Query(_ context.Context, _ models.Vector) ([]models.KnowledgeEntry, error) {
	return m.results, m.queryErr
}

func (m *mockStore) Close() error { return nil }

func newService(llm *mockModel, emb *mockEmbedder, store *mockStore, opts Options) *AssistantService {
	return NewAssistantService(llm, emb, store, nil, opts, nil)
}

// --- Complete ---

func TestComplete_Blocking(t *testing.T) {
	llm := &mockModel{completion: "4"}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	got, err := svc.Complete(context.Background(), models.Prompt{Question: "What is 2+2?", ResponseMode: models.Blocking})
	require.NoError(t, err)
	assert.Equal(t, "4", got)

	env := llm.lastEnvelope(t)
	assert.Equal(t, "Human: What is 2+2?\n\nAssistant:", env.Text)
	assert.Equal(t, prompt.BlockingOptions.Temperature, env.Options.Temperature)
	assert.Equal(t, []string{prompt.StopHuman}, env.Options.StopSequences)
}

func TestComplete_Streaming(t *testing.T) {
	llm := &mockModel{chunks: []string{"He", "llo!"}}
	var live []string
	sink := func(d string) error {
		live = append(live, d)
		return nil
	}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{Sink: sink})

	got, err := svc.Complete(context.Background(), models.Prompt{Question: "Hello", ResponseMode: models.Streaming})
	require.NoError(t, err)

	assert.Equal(t, "Hello!", got)
	assert.Equal(t, []string{"He", "llo!"}, live)
	assert.Equal(t, prompt.StreamingOptions.Temperature, llm.lastEnvelope(t).Options.Temperature)
}

func TestComplete_PerCallSinkOverridesDefault(t *testing.T) {
	llm := &mockModel{chunks: []string{"a", "b"}}
	var def, call strings.Builder
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{Sink: func(d string) error {
		def.WriteString(d)
		return nil
	}})

	_, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming},
		WithSink(func(d string) error {
			call.WriteString(d)
			return nil
		}))
	require.NoError(t, err)

	assert.Empty(t, def.String())
	assert.Equal(t, "ab", call.String())
}

func TestComplete_StreamErrorReturnsPartial(t *testing.T) {
	cause := errors.New("model overloaded")
	llm := &mockModel{chunks: []string{"C1", "C2"}, streamErr: cause}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	got, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming})

	assert.ErrorIs(t, err, core.ErrStream)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "C1C2", got)
	assert.Equal(t, "C1C2", core.PartialText(err))
}

func TestComplete_StreamErrorToleratedWhenConfigured(t *testing.T) {
	llm := &mockModel{chunks: []string{"C1", "C2"}, streamErr: errors.New("reset")}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{TolerateStreamErrors: true})

	got, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming})
	require.NoError(t, err)
	assert.Equal(t, "C1C2", got)
}

func TestComplete_StreamTimeoutDiscardsPartialAndStopsProducer(t *testing.T) {
	llm := &mockModel{chunks: []string{"half"}, hang: true}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{StreamTimeout: 30 * time.Millisecond})

	got, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming})

	assert.ErrorIs(t, err, core.ErrTimeout)
	assert.Empty(t, got)
	select {
	case <-llm.stopped:
	case <-time.After(time.Second):
		t.Fatal("producer still running after timeout")
	}
}

func TestComplete_CancelReleasesCallerAndStopsProducer(t *testing.T) {
	llm := &mockModel{hang: true}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := svc.Complete(ctx, models.Prompt{Question: "q", ResponseMode: models.Streaming})
		errc <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, core.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("caller not released after cancel")
	}
	select {
	case <-llm.stopped:
	case <-time.After(time.Second):
		t.Fatal("producer still running after cancel")
	}
}

func TestComplete_BackendErrorsAreClassified(t *testing.T) {
	llm := &mockModel{blockingErr: errors.New("403 forbidden")}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	_, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Blocking})
	assert.ErrorIs(t, err, core.ErrBackend)

	llm = &mockModel{blockingErr: core.Malformed("test", "missing completion")}
	svc = newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	_, err = svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Blocking})
	assert.ErrorIs(t, err, core.ErrMalformedResponse)
	assert.NotErrorIs(t, err, core.ErrBackend)
}

func TestComplete_BackendFailureAfterCancelIsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	llm := &mockModel{blockingErr: core.Backend("test.invoke", context.Canceled)}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	_, err := svc.Complete(ctx, models.Prompt{Question: "q", ResponseMode: models.Blocking})

	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComplete_StreamOpenFailure(t *testing.T) {
	llm := &mockModel{openErr: errors.New("dial tcp: timeout")}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	_, err := svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming})
	assert.ErrorIs(t, err, core.ErrBackend)
}

func TestComplete_RejectsEmptyQuestion(t *testing.T) {
	llm := &mockModel{}
	svc := newService(llm, &mockEmbedder{}, &mockStore{}, Options{})

	_, err := svc.Complete(context.Background(), models.Prompt{Question: "  "})
	assert.ErrorIs(t, err, core.ErrInvalidPrompt)
	assert.Empty(t, llm.envelopes)
}

// --- EmbedAndStore ---

func TestEmbedAndStore(t *testing.T) {
	emb := &mockEmbedder{vector: models.Vector{0.1, 0.2}}
	store := &mockStore{}
	svc := newService(&mockModel{}, emb, store, Options{})

	got, err := svc.EmbedAndStore(context.Background(), models.Prompt{Question: "Paris is the capital of France"})
	require.NoError(t, err)

	assert.Equal(t, SavedConfirmation, got)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "Paris is the capital of France", store.saved[0].Text)
	assert.Equal(t, models.Vector{0.1, 0.2}, store.saved[0].Vector)
	assert.NotEmpty(t, store.saved[0].ID)
}

func TestEmbedAndStore_Failures(t *testing.T) {
	svc := newService(&mockModel{}, &mockEmbedder{err: errors.New("throttled")}, &mockStore{}, Options{})
	_, err := svc.EmbedAndStore(context.Background(), models.Prompt{Question: "q"})
	assert.ErrorIs(t, err, core.ErrBackend)

	svc = newService(&mockModel{}, &mockEmbedder{vector: models.Vector{}}, &mockStore{}, Options{})
	_, err = svc.EmbedAndStore(context.Background(), models.Prompt{Question: "q"})
	assert.ErrorIs(t, err, core.ErrMalformedResponse)

	svc = newService(&mockModel{}, &mockEmbedder{vector: models.Vector{1}}, &mockStore{saveErr: errors.New("disk full")}, Options{})
	_, err = svc.EmbedAndStore(context.Background(), models.Prompt{Question: "q"})
	assert.ErrorIs(t, err, core.ErrStore)
}

// --- RetrieveAndComplete ---

func TestRetrieveAndComplete(t *testing.T) {
	llm := &mockModel{chunks: []string{"Par", "is."}}
	store := &mockStore{results: []models.KnowledgeEntry{{Text: "Paris is the capital of France"}}}
	emb := &mockEmbedder{vector: models.Vector{0.3}}
	svc := newService(llm, emb, store, Options{})

	got, err := svc.RetrieveAndComplete(context.Background(), models.Prompt{Question: "Capital of France?", ResponseMode: models.Blocking})
	require.NoError(t, err)
	assert.Equal(t, "Paris.", got)

	env := llm.lastEnvelope(t)
	assert.Contains(t, env.Text, "<context>Paris is the capital of France</context>")
	assert.True(t, strings.HasSuffix(env.Text, prompt.AssistantTurn))
	assert.Zero(t, env.Options.Temperature)
	assert.Equal(t, []string{"Capital of France?"}, emb.texts)
}

func TestRetrieveAndComplete_NoContext(t *testing.T) {
	llm := &mockModel{chunks: []string{"I don't know."}}
	svc := newService(llm, &mockEmbedder{vector: models.Vector{1}}, &mockStore{}, Options{})

	got, err := svc.RetrieveAndComplete(context.Background(), models.Prompt{Question: "Unknown?"})
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", got)

	env := llm.lastEnvelope(t)
	assert.Equal(t, "Human: Unknown?\n\nAssistant:", env.Text)
}

func TestRetrieveAndComplete_ContextOrder(t *testing.T) {
	llm := &mockModel{chunks: []string{"ok"}}
	store := &mockStore{results: []models.KnowledgeEntry{{Text: "A"}, {Text: "B"}, {Text: "C"}}}
	svc := newService(llm, &mockEmbedder{vector: models.Vector{1}}, store, Options{})

	_, err := svc.RetrieveAndComplete(context.Background(), models.Prompt{Question: "q"})
	require.NoError(t, err)

	assert.Contains(t, llm.lastEnvelope(t).Text,
		"<context>A</context>\n<context>B</context>\n<context>C</context>\n")
}

func TestRetrieveAndComplete_SearchFailurePolicy(t *testing.T) {
	store := &mockStore{queryErr: errors.New("vector index unavailable")}

	llm := &mockModel{chunks: []string{"x"}}
	svc := newService(llm, &mockEmbedder{vector: models.Vector{1}}, store, Options{})
	_, err := svc.RetrieveAndComplete(context.Background(), models.Prompt{Question: "q"})
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Empty(t, llm.envelopes)

	aug := retrieval.NewAugmenter(store, nil)
	aug.DegradeOnError = true
	llm = &mockModel{chunks: []string{"x"}}
	svc = NewAssistantService(llm, &mockEmbedder{vector: models.Vector{1}}, store, aug, Options{}, nil)
	got, err := svc.RetrieveAndComplete(context.Background(), models.Prompt{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "x", got)
	assert.NotContains(t, llm.lastEnvelope(t).Text, "<context>")
}

func TestConcurrentRequestsAreIndependent(t *testing.T) {
	svc := newService(&mockModel{chunks: []string{"a", "b", "c"}}, &mockEmbedder{}, &mockStore{}, Options{})

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Complete(context.Background(), models.Prompt{Question: "q", ResponseMode: models.Streaming})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "abc", r)
	}
}
