package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/health-attestation-server/internal/domain"
	"github.com/health-attestation-server/pkg/canonical"
)

// RecentWindow is how long a credential counts as recent after submission.
const RecentWindow = 30 * 24 * time.Hour

const (
	keyOwner  = "meta/owner"
	keyHeight = "meta/height"
)

// Transaction kinds recorded by the local ledger.
const (
	TxSubmitCredential   = "submitCredential"
	TxValidateCredential = "validateCredential"
	TxAddVerifier        = "addVerifier"
	TxRemoveVerifier     = "removeVerifier"
)

// TxRecord is the receipt of one local ledger transaction.
type TxRecord struct {
	Ref       domain.TxRef `json:"ref"`
	Kind      string       `json:"kind"`
	Signer    string       `json:"signer"`
	Identity  string       `json:"identity,omitempty"`
	Index     int          `json:"index"`
	Height    uint64       `json:"height"`
	Timestamp int64        `json:"timestamp"`
}

// localState is shared by every signer view of one database.
type localState struct {
	mu    sync.Mutex
	db    *leveldb.DB
	owner string
	now   func() time.Time
}

// LocalLedger is an embedded, single-node ledger persisted in LevelDB. It
// enforces the credential contract rules: the owner manages verifiers, only
// authorized verifiers validate credentials, and indices must exist.
// Transactions are final as soon as they return.
type LocalLedger struct {
	state  *localState
	signer string
	logger *logrus.Logger
}

// LocalOption configures a LocalLedger
type LocalOption func(*localState)

// WithClock sets the time source used for credential timestamps.
func WithClock(now func() time.Time) LocalOption {
	return func(s *localState) {
		s.now = now
	}
}

// OpenLocal opens (or creates) the LevelDB ledger at cfg.Path.
func OpenLocal(cfg domain.LocalLedgerConfig, logger *logrus.Logger, opts ...LocalOption) (*LocalLedger, error) {
	db, err := leveldb.OpenFile(cfg.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open local ledger at %s: %w", cfg.Path, err)
	}
	l, err := NewLocal(db, cfg.Owner, cfg.Signer, logger, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewLocal wraps an open database. The owner is fixed the first time the
// database is used; reopening with a different owner fails.
func NewLocal(db *leveldb.DB, owner, signer string, logger *logrus.Logger, opts ...LocalOption) (*LocalLedger, error) {
	if owner == "" || signer == "" {
		return nil, fmt.Errorf("local ledger owner and signer are required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	state := &localState{db: db, now: time.Now}
	for _, opt := range opts {
		opt(state)
	}

	stored, err := db.Get([]byte(keyOwner), nil)
	switch {
	case errors.Is(err, leveldb.ErrNotFound):
		if err := db.Put([]byte(keyOwner), []byte(owner), nil); err != nil {
			return nil, fmt.Errorf("failed to initialize ledger owner: %w", err)
		}
		state.owner = owner
	case err != nil:
		return nil, fmt.Errorf("failed to read ledger owner: %w", err)
	case string(stored) != owner:
		return nil, fmt.Errorf("local ledger is owned by %s, not %s", stored, owner)
	default:
		state.owner = owner
	}

	logger.WithFields(logrus.Fields{
		"owner":  owner,
		"signer": signer,
	}).Info("Local ledger initialized")

	return &LocalLedger{state: state, signer: signer, logger: logger}, nil
}

// WithSigner returns a view of the same ledger that signs as addr.
func (l *LocalLedger) WithSigner(addr string) *LocalLedger {
	return &LocalLedger{state: l.state, signer: addr, logger: l.logger}
}

// Owner returns the ledger owner address
func (l *LocalLedger) Owner() string { return l.state.owner }

// Signer returns the address this view signs as
func (l *LocalLedger) Signer() string { return l.signer }

// Close closes the underlying database
func (l *LocalLedger) Close() error {
	return l.state.db.Close()
}

// Submit appends a credential for the submission identity. Credentials start
// unverified.
func (l *LocalLedger) Submit(ctx context.Context, submission domain.LedgerSubmission) (domain.TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if submission.Identity == "" {
		return "", fmt.Errorf("identity is required")
	}
	attestationHash, err := canonical.ParseHash(submission.AttestationHash)
	if err != nil {
		return "", fmt.Errorf("attestation hash: %w", err)
	}
	metadataHash, err := canonical.ParseHash(submission.MetadataHash)
	if err != nil {
		return "", fmt.Errorf("metadata hash: %w", err)
	}

	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.count(submission.Identity)
	if err != nil {
		return "", err
	}

	record := domain.CredentialRecord{
		Index:           count,
		AttestationHash: attestationHash,
		MetadataHash:    metadataHash,
		EpochSeconds:    s.now().Unix(),
		Verified:        false,
		DataSource:      submission.DataSource,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(credentialKey(submission.Identity, count), data)
	batch.Put(countKey(submission.Identity), []byte(strconv.Itoa(count+1)))
	tx, err := s.commit(batch, TxSubmitCredential, l.signer, submission.Identity, count)
	if err != nil {
		return "", err
	}

	l.logger.WithFields(logrus.Fields{
		"identity": submission.Identity,
		"index":    count,
		"tx_ref":   tx.Ref,
	}).Debug("Credential submitted to local ledger")
	return tx.Ref, nil
}

// ReadCredentials returns the credentials of identity in submission order.
func (l *LocalLedger) ReadCredentials(ctx context.Context, identity string) ([]domain.CredentialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	count, err := s.count(identity)
	if err != nil {
		return nil, err
	}
	records := make([]domain.CredentialRecord, 0, count)
	for i := 0; i < count; i++ {
		record, err := s.credential(identity, i)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, nil
}

// SetVerified sets the verified flag of one credential. The signer must be
// an authorized verifier.
func (l *LocalLedger) SetVerified(ctx context.Context, identity string, index int, verified bool) (domain.TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	authorized, err := s.isVerifier(l.signer)
	if err != nil {
		return "", err
	}
	if !authorized {
		return "", domain.ErrNotAuthorized
	}

	record, err := s.checkedCredential(identity, index)
	if err != nil {
		return "", err
	}
	record.Verified = verified
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode credential: %w", err)
	}

	batch := new(leveldb.Batch)
	batch.Put(credentialKey(identity, index), data)
	tx, err := s.commit(batch, TxValidateCredential, l.signer, identity, index)
	if err != nil {
		return "", err
	}
	return tx.Ref, nil
}

// AddVerifier authorizes addr to validate credentials. Owner only.
func (l *LocalLedger) AddVerifier(ctx context.Context, addr string) (domain.TxRef, error) {
	return l.setVerifier(ctx, addr, true)
}

// RemoveVerifier revokes addr. Owner only.
func (l *LocalLedger) RemoveVerifier(ctx context.Context, addr string) (domain.TxRef, error) {
	return l.setVerifier(ctx, addr, false)
}

func (l *LocalLedger) setVerifier(ctx context.Context, addr string, authorized bool) (domain.TxRef, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if addr == "" {
		return "", fmt.Errorf("verifier address is required")
	}

	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.signer != s.owner {
		return "", domain.ErrOnlyOwner
	}

	batch := new(leveldb.Batch)
	kind := TxRemoveVerifier
	if authorized {
		kind = TxAddVerifier
		batch.Put(verifierKey(addr), []byte("1"))
	} else {
		batch.Delete(verifierKey(addr))
	}
	tx, err := s.commit(batch, kind, l.signer, addr, 0)
	if err != nil {
		return "", err
	}
	return tx.Ref, nil
}

// IsVerifier reports whether addr may validate credentials. The owner
// always may.
func (l *LocalLedger) IsVerifier(addr string) (bool, error) {
	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isVerifier(addr)
}

// IsCredentialRecent reports whether the credential was submitted within RecentWindow.
func (l *LocalLedger) IsCredentialRecent(ctx context.Context, identity string, index int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.checkedCredential(identity, index)
	if err != nil {
		return false, err
	}
	submitted := time.Unix(record.EpochSeconds, 0)
	return s.now().Sub(submitted) <= RecentWindow, nil
}

// Transaction returns the receipt of a committed transaction.
func (l *LocalLedger) Transaction(ref domain.TxRef) (*TxRecord, error) {
	data, err := l.state.db.Get(txKey(ref), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("transaction %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction: %w", err)
	}
	var tx TxRecord
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return &tx, nil
}

// Height returns the number of committed transactions.
func (l *LocalLedger) Height() (uint64, error) {
	s := l.state
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height()
}

// commit writes batch together with its transaction receipt. Callers hold s.mu.
func (s *localState) commit(batch *leveldb.Batch, kind, signer, identity string, index int) (*TxRecord, error) {
	height, err := s.height()
	if err != nil {
		return nil, err
	}
	height++

	tx := &TxRecord{
		Kind:      kind,
		Signer:    signer,
		Identity:  identity,
		Index:     index,
		Height:    height,
		Timestamp: s.now().Unix(),
	}
	tx.Ref = domain.TxRef(canonical.Keccak256Hex([]byte(fmt.Sprintf("%d:%s:%s:%s:%d:%s",
		height, kind, signer, identity, index, uuid.NewString()))))

	data, err := json.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	batch.Put(txKey(tx.Ref), data)
	batch.Put([]byte(keyHeight), []byte(strconv.FormatUint(height, 10)))

	if err := s.db.Write(batch, nil); err != nil {
		return nil, fmt.Errorf("failed to commit %s: %w", kind, err)
	}
	return tx, nil
}

func (s *localState) height() (uint64, error) {
	data, err := s.db.Get([]byte(keyHeight), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read ledger height: %w", err)
	}
	return strconv.ParseUint(string(data), 10, 64)
}

func (s *localState) count(identity string) (int, error) {
	data, err := s.db.Get(countKey(identity), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read credential count: %w", err)
	}
	return strconv.Atoi(string(data))
}

func (s *localState) credential(identity string, index int) (*domain.CredentialRecord, error) {
	data, err := s.db.Get(credentialKey(identity, index), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read credential %d: %w", index, err)
	}
	var record domain.CredentialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode credential %d: %w", index, err)
	}
	return &record, nil
}

func (s *localState) checkedCredential(identity string, index int) (*domain.CredentialRecord, error) {
	count, err := s.count(identity)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= count {
		return nil, domain.ErrInvalidCredentialIndex
	}
	return s.credential(identity, index)
}

func (s *localState) isVerifier(addr string) (bool, error) {
	if addr == s.owner {
		return true, nil
	}
	ok, err := s.db.Has(verifierKey(addr), nil)
	if err != nil {
		return false, fmt.Errorf("failed to read verifier: %w", err)
	}
	return ok, nil
}

func credentialKey(identity string, index int) []byte {
	return []byte(fmt.Sprintf("cred/%s/%d", identity, index))
}

func countKey(identity string) []byte {
	return []byte("count/" + identity)
}

func verifierKey(addr string) []byte {
	return []byte("verifier/" + addr)
}

func txKey(ref domain.TxRef) []byte {
	return []byte("tx/" + string(ref))
}
