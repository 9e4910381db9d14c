package signature

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/revendaauto/backoffice/internal/db"
	"github.com/revendaauto/backoffice/internal/server/contracts"
	"github.com/revendaauto/backoffice/internal/server/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://loja.example.com"
	cpf         = "12345678909"
	cnpj        = "12345678000195"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	db        *sqlx.DB
	contracts *contracts.Store
	svc       *Service
	clock     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "sig.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	env := &testEnv{db: database, contracts: contracts.NewStore(database), clock: testNow}
	env.svc = NewService(&Config{}, database, env.contracts, testBaseURL)
	env.svc.now = func() time.Time { return env.clock }
	return env
}

func (e *testEnv) contract(t *testing.T, id int64, doc string) {
	t.Helper()
	_, err := e.db.Exec(
		`INSERT INTO contracts (id, customer_name, customer_document, customer_email, vehicle_description, status, created_at)
		 VALUES (?, 'Maria Souza', ?, 'maria@example.com', 'Fiat Uno 2012', 'pending', ?)`,
		id, doc, testNow.UnixMilli(),
	)
	require.NoError(t, err)
}

func TestIssue(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 42, cpf)

	issued, err := env.svc.Issue(context.Background(), 42)
	require.NoError(t, err)

	assert.Len(t, issued.Token, 43)
	assert.Equal(t, testBaseURL+"/assinar/"+issued.Token, issued.SigningURL)
	assert.Equal(t, testNow.Add(48*time.Hour), issued.ExpiresAt)
	assert.EqualValues(t, 42, issued.Contract.ID)

	// only the digest is persisted
	var n int
	require.NoError(t, env.db.Get(&n, "SELECT COUNT(*) FROM signature_tokens WHERE token_hash = ?", issued.Token))
	assert.Zero(t, n)
	require.NoError(t, env.db.Get(&n, "SELECT COUNT(*) FROM signature_tokens WHERE token_hash = ?", hashToken(issued.Token)))
	assert.Equal(t, 1, n)

	other, err := env.svc.Issue(context.Background(), 42)
	require.NoError(t, err)
	assert.NotEqual(t, issued.Token, other.Token)
}

func TestIssue_UnknownContract(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Issue(context.Background(), 7)
	assert.ErrorIs(t, err, ErrContractNotFound)
}

func TestTokenLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 42, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 42)
	require.NoError(t, err)

	id, err := env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	_, err = env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)

	_, err = env.svc.Lookup(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrTokenAlreadyConsumed)
}

func TestValidate_UnknownToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.ValidateAndConsume(ctx, "does-not-exist", "909")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	_, err = env.svc.ValidateAndConsume(ctx, "", "909")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidate_Expired(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 1, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 1)
	require.NoError(t, err)

	env.clock = testNow.Add(48*time.Hour + time.Millisecond)
	for _, fragment := range []string{"909", "000", ""} {
		_, err := env.svc.ValidateAndConsume(ctx, issued.Token, fragment)
		assert.ErrorIs(t, err, ErrTokenExpired, fragment)
	}

	_, err = env.svc.Lookup(ctx, issued.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 1, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 1)
	require.NoError(t, err)

	env.clock = testNow.Add(48 * time.Hour)
	id, err := env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
}

func TestValidate_IdentityMismatchKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 5, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 5)
	require.NoError(t, err)

	for _, wrong := range []string{"123", "90", "abc", "9090"} {
		_, err := env.svc.ValidateAndConsume(ctx, issued.Token, wrong)
		assert.ErrorIs(t, err, ErrIdentityMismatch, wrong)
	}

	var consumed bool
	require.NoError(t, env.db.Get(&consumed, "SELECT consumed FROM signature_tokens WHERE token_hash = ?", hashToken(issued.Token)))
	assert.False(t, consumed)

	id, err := env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	require.NoError(t, err)
	assert.EqualValues(t, 5, id)
}

func TestValidate_CompanyDocument(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 9, cnpj)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 9)
	require.NoError(t, err)

	_, err = env.svc.ValidateAndConsume(ctx, issued.Token, "195")
	assert.ErrorIs(t, err, ErrIdentityMismatch)

	id, err := env.svc.ValidateAndConsume(ctx, issued.Token, "123")
	require.NoError(t, err)
	assert.EqualValues(t, 9, id)
}

func TestValidate_ConcurrentPresentations(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 42, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 42)
	require.NoError(t, err)

	const workers = 50
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		start    = make(chan struct{})
		success  int
		consumed int
		other    []error
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			id, err := env.svc.ValidateAndConsume(ctx, issued.Token, "909")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && id == 42:
				success++
			case errors.Is(err, ErrTokenAlreadyConsumed):
				consumed++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, consumed)
}

func TestLookup(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 3, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 3)
	require.NoError(t, err)

	for range 3 {
		info, err := env.svc.Lookup(ctx, issued.Token)
		require.NoError(t, err)
		assert.EqualValues(t, 3, info.ContractID)
		assert.Equal(t, "Fiat Uno 2012", info.Contract.VehicleDescription)
	}

	_, err = env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	require.NoError(t, err)
}

func TestSign(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 11, cpf)
	ctx := context.Background()

	first, err := env.svc.Issue(ctx, 11)
	require.NoError(t, err)
	second, err := env.svc.Issue(ctx, 11)
	require.NoError(t, err)

	res, err := env.svc.Sign(ctx, first.Token, "909")
	require.NoError(t, err)
	assert.EqualValues(t, 11, res.ContractID)
	assert.Equal(t, testNow, res.SignedAt)

	c, err := env.contracts.Get(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusSigned, c.Status)

	// a second live link can not sign twice, and is not burned trying
	_, err = env.svc.Sign(ctx, second.Token, "909")
	assert.ErrorIs(t, err, ErrContractSigned)
	_, err = env.svc.Lookup(ctx, second.Token)
	assert.NoError(t, err)

	_, err = env.svc.Issue(ctx, 11)
	assert.ErrorIs(t, err, ErrContractSigned)
}

type flakyContracts struct {
	*contracts.Store
	failures int
}

func (f *flakyContracts) MarkSignedTx(ctx context.Context, tx *sqlx.Tx, id int64, at time.Time) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("database is locked")
	}
	return f.Store.MarkSignedTx(ctx, tx, id, at)
}

func TestSign_RollsBackWhenContractUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 7, cpf)
	flaky := &flakyContracts{Store: env.contracts, failures: 1}
	env.svc.contracts = flaky
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 7)
	require.NoError(t, err)

	_, err = env.svc.Sign(ctx, issued.Token, "909")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenAlreadyConsumed)

	c, err := env.contracts.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusPending, c.Status)

	var consumed bool
	require.NoError(t, env.db.Get(&consumed, `SELECT consumed FROM signature_tokens WHERE token_hash = ?`, hashToken(issued.Token)))
	assert.False(t, consumed)

	res, err := env.svc.Sign(ctx, issued.Token, "909")
	require.NoError(t, err)
	assert.EqualValues(t, 7, res.ContractID)

	c, err = env.contracts.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusSigned, c.Status)
}

type countingObserver struct {
	mu       sync.Mutex
	issued   int
	outcomes map[string]int
}

func (o *countingObserver) ObserveSignatureIssued() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.issued++
}

func (o *countingObserver) ObserveSignatureAttempt(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[outcome]++
}

func TestObserver(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 1, cpf)
	obs := &countingObserver{outcomes: map[string]int{}}
	env.svc.WithObserver(obs)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 1)
	require.NoError(t, err)

	_, _ = env.svc.ValidateAndConsume(ctx, "nope", "909")
	_, _ = env.svc.ValidateAndConsume(ctx, issued.Token, "000")
	_, _ = env.svc.ValidateAndConsume(ctx, issued.Token, "909")
	_, _ = env.svc.ValidateAndConsume(ctx, issued.Token, "909")

	assert.Equal(t, 1, obs.issued)
	assert.Equal(t, map[string]int{"not_found": 1, "mismatch": 1, "ok": 1, "consumed": 1}, obs.outcomes)
}

type fakeMailer struct {
	enabled bool
	sent    []*email.Message
}

func (m *fakeMailer) IsEnabled() bool { return m.enabled }

func (m *fakeMailer) Send(_ context.Context, msg *email.Message) error {
	m.sent = append(m.sent, msg)
	return nil
}

func TestNotify(t *testing.T) {
	env := newTestEnv(t)
	env.contract(t, 8, cpf)
	ctx := context.Background()

	issued, err := env.svc.Issue(ctx, 8)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.Notify(ctx, issued), email.ErrDisabled)

	mailer := &fakeMailer{enabled: true}
	env.svc.WithMailer(mailer, "Revenda Auto")
	require.True(t, env.svc.CanNotify())
	require.NoError(t, env.svc.Notify(ctx, issued))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "maria@example.com", msg.ToEmail)
	assert.Contains(t, msg.HTMLBody, issued.SigningURL)
	assert.Contains(t, msg.HTMLBody, "48 horas")
	assert.False(t, strings.Contains(msg.HTMLBody, cpf), "document must not be mailed")

	issued.Contract.CustomerEmail = ""
	assert.ErrorIs(t, env.svc.Notify(ctx, issued), ErrNoRecipient)
}
