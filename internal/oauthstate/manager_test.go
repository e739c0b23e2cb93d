package oauthstate

import (
	"context"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adnanh27/postbridge/internal/models"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]*models.OAuthStateRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: make(map[string]*models.OAuthStateRecord)}
}

func (s *memoryStore) Save(_ context.Context, rec *models.OAuthStateRecord, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *rec
	s.records[rec.State] = &clone
	return nil
}

func (s *memoryStore) Get(_ context.Context, state string) (*models.OAuthStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[state]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

// Take holds the lock across lookup and delete, matching the GETDEL
// atomicity of the real store.
func (s *memoryStore) Take(_ context.Context, state string) (*models.OAuthStateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[state]
	if !ok {
		return nil, nil
	}
	delete(s.records, state)
	clone := *rec
	return &clone, nil
}

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	return NewManager("unit-test-secret", store), store
}

func TestGenerateProducesWellFormedState(t *testing.T) {
	m, _ := newTestManager()

	state, err := m.Generate(context.Background(), 42, 7, "")
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^42_7_\d+_[0-9a-f]{64}$`), state)
}

func TestValidateAcceptsFreshState(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)

	assert.True(t, m.Validate(ctx, state, 42, 7))
}

func TestValidateRejectsWrongIdentity(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)

	assert.False(t, m.Validate(ctx, state, 43, 7), "wrong user")
	assert.False(t, m.Validate(ctx, state, 42, 8), "wrong org")
}

func TestValidateRejectsMalformedStates(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	for _, state := range []string{
		"",
		"garbage",
		"42_7_notatime_abcd",
		"a_b_c_d",
		"42_7_1700000000000",
	} {
		assert.False(t, m.Validate(ctx, state, 42, 7), state)
	}
}

func TestValidateRejectsExpiredState(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(StateTTL) }
	assert.False(t, m.Validate(ctx, state, 42, 7))
}

func TestValidateRejectsForgedSignature(t *testing.T) {
	m, store := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)

	// Re-key the record under a state with a forged signature, as an
	// attacker who can guess record keys would have to.
	rec := store.records[state]
	forged := state[:len(state)-64] + "deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
	rec.State = forged
	store.records[forged] = rec

	assert.False(t, m.Validate(ctx, forged, 42, 7))
}

func TestConsumeIsSingleUse(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)
	require.True(t, m.Validate(ctx, state, 42, 7))

	rec, err := m.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.UserID)
	assert.Equal(t, int64(7), rec.OrgID)

	assert.False(t, m.Validate(ctx, state, 42, 7))
	_, err = m.Consume(ctx, state)
	assert.Error(t, err)
}

func TestConsumeConcurrentCallersGetOneRecord(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	var succeeded atomic.Int32
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if rec, err := m.Consume(ctx, state); err == nil && rec != nil {
				succeeded.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load(), "only one racing callback may consume the state")
}

func TestAttachCodeVerifierSurvivesConsume(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	state, err := m.Generate(ctx, 42, 7, "")
	require.NoError(t, err)
	require.NoError(t, m.AttachCodeVerifier(ctx, state, "pkce-verifier-value"))

	rec, err := m.Consume(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "pkce-verifier-value", rec.CodeVerifier)
}

func TestAttachCodeVerifierUnknownState(t *testing.T) {
	m, _ := newTestManager()

	err := m.AttachCodeVerifier(context.Background(), "42_7_1_ff", "verifier")
	assert.Error(t, err)
}
