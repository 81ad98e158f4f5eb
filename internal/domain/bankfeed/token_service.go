package bankfeed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"rentledger/internal/domain/account"
	"rentledger/internal/infrastructure/bankfeed"
)

var (
	// ErrNoRefreshToken means the linked account has no stored refresh
	// token, so the consent must be re-established by the user.
	ErrNoRefreshToken = errors.New("linked account has no refresh token")

	// ErrAccountNotVisible means the requested upstream account is not
	// among the accounts the granted consent can see.
	ErrAccountNotVisible = errors.New("upstream account not visible to this consent")
)

// DefaultExpiryBuffer is subtracted from the stored expiry so tokens are
// refreshed before they actually lapse mid-request.
const DefaultExpiryBuffer = 60 * time.Second

// Encryptor seals and opens credential strings at rest.
type Encryptor interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// TokenService owns the token lifecycle for linked accounts: decrypting
// stored credentials, refreshing them upstream, and persisting the new
// pair in one atomic write. Plaintext tokens only ever live on the stack.
type TokenService struct {
	accounts  account.Repository
	client    bankfeed.ClientInterface
	encryptor Encryptor
	now       func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(accounts account.Repository, client bankfeed.ClientInterface, encryptor Encryptor) *TokenService {
	return &TokenService{
		accounts:  accounts,
		client:    client,
		encryptor: encryptor,
		now:       time.Now,
	}
}

// IsExpired reports whether a token with the given expiry needs a refresh.
// The buffer widens the expiry window so a token is renewed before it can
// lapse mid-request; callers normally pass DefaultExpiryBuffer. A nil
// expiry means the upstream never communicated one; such tokens are
// treated as non-expiring.
func (s *TokenService) IsExpired(expiresAt *time.Time, buffer time.Duration) bool {
	if expiresAt == nil {
		return false
	}
	return !s.now().Add(buffer).Before(*expiresAt)
}

// AccessToken returns the plaintext access token for the account,
// refreshing it first when the stored one is expired or missing.
func (s *TokenService) AccessToken(ctx context.Context, acct *account.LinkedAccount) (string, error) {
	if acct.AccessTokenEncrypted != "" && !s.IsExpired(acct.TokenExpiresAt, DefaultExpiryBuffer) {
		token, err := s.encryptor.Decrypt(acct.AccessTokenEncrypted)
		if err != nil {
			return "", fmt.Errorf("failed to decrypt access token for account %s: %w", acct.ID, err)
		}
		return token, nil
	}
	return s.Refresh(ctx, acct)
}

// Refresh exchanges the account's refresh token for a new token pair,
// stores both encrypted in a single write, and returns the new plaintext
// access token. When the upstream omits a new refresh token the previous
// ciphertext is kept so the consent chain is not broken.
func (s *TokenService) Refresh(ctx context.Context, acct *account.LinkedAccount) (string, error) {
	if acct.RefreshTokenEncrypted == nil {
		return "", ErrNoRefreshToken
	}

	refreshToken, err := s.encryptor.Decrypt(*acct.RefreshTokenEncrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token for account %s: %w", acct.ID, err)
	}

	resp, err := s.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed for account %s: %w", acct.ID, err)
	}

	accessEnc, err := s.encryptor.Encrypt(resp.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}

	update := account.TokenUpdate{
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: acct.RefreshTokenEncrypted,
	}
	if resp.RefreshToken != "" {
		refreshEnc, err := s.encryptor.Encrypt(resp.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		update.RefreshTokenEncrypted = &refreshEnc
	}
	if resp.ExpiresIn > 0 {
		expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		update.TokenExpiresAt = &expiresAt
	}

	if err := s.accounts.UpdateTokens(ctx, acct.ID, update); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens for account %s: %w", acct.ID, err)
	}

	// Keep the in-memory view consistent with storage.
	acct.AccessTokenEncrypted = update.AccessTokenEncrypted
	acct.RefreshTokenEncrypted = update.RefreshTokenEncrypted
	acct.TokenExpiresAt = update.TokenExpiresAt

	log.Printf("Refreshed tokens for linked account %s", acct.ID)
	return resp.AccessToken, nil
}

// LinkAccountParams carries what is needed to connect a new upstream
// account: the one-time authorization code plus account identity.
type LinkAccountParams struct {
	AuthorizationCode string
	UpstreamAccountID string
	InstitutionName   string
	SyncStartDate     time.Time
}

// LinkAccount exchanges an authorization code for the initial token pair,
// verifies the requested account is visible to the granted consent, and
// creates the linked account with both tokens already encrypted. An
// upstream that returns no refresh token cannot sustain unattended syncs,
// so the link is rejected.
func (s *TokenService) LinkAccount(ctx context.Context, params LinkAccountParams) (*account.LinkedAccount, error) {
	resp, err := s.client.ExchangeCode(ctx, params.AuthorizationCode)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	if resp.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	upstreamAccounts, err := s.client.GetAccounts(ctx, resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to list upstream accounts: %w", err)
	}
	var visible *bankfeed.Account
	for i := range upstreamAccounts {
		if upstreamAccounts[i].ID == params.UpstreamAccountID {
			visible = &upstreamAccounts[i]
			break
		}
	}
	if visible == nil {
		return nil, ErrAccountNotVisible
	}
	if params.InstitutionName == "" {
		params.InstitutionName = visible.Institution
	}

	accessEnc, err := s.encryptor.Encrypt(resp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshEnc, err := s.encryptor.Encrypt(resp.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	createParams := account.CreateLinkedAccountParams{
		UpstreamAccountID:     params.UpstreamAccountID,
		InstitutionName:       params.InstitutionName,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: &refreshEnc,
		SyncStartDate:         params.SyncStartDate,
	}
	if resp.ExpiresIn > 0 {
		expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		createParams.TokenExpiresAt = &expiresAt
	}

	acct, err := s.accounts.Create(ctx, createParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create linked account: %w", err)
	}

	log.Printf("Linked account %s (upstream %s)", acct.ID, acct.UpstreamAccountID)
	return acct, nil
}

// Link exchanges an authorization code for the initial token pair and
// stores it against the account.
func (s *TokenService) Link(ctx context.Context, acct *account.LinkedAccount, authorizationCode string) error {
	resp, err := s.client.ExchangeCode(ctx, authorizationCode)
	if err != nil {
		return fmt.Errorf("code exchange failed for account %s: %w", acct.ID, err)
	}
	if resp.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	accessEnc, err := s.encryptor.Encrypt(resp.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	refreshEnc, err := s.encryptor.Encrypt(resp.RefreshToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	update := account.TokenUpdate{
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: &refreshEnc,
	}
	if resp.ExpiresIn > 0 {
		expiresAt := s.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
		update.TokenExpiresAt = &expiresAt
	}

	if err := s.accounts.UpdateTokens(ctx, acct.ID, update); err != nil {
		return fmt.Errorf("failed to persist tokens for account %s: %w", acct.ID, err)
	}

	acct.AccessTokenEncrypted = update.AccessTokenEncrypted
	acct.RefreshTokenEncrypted = update.RefreshTokenEncrypted
	acct.TokenExpiresAt = update.TokenExpiresAt
	return nil
}
