package walletclient

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kasbot/kasbot-server/chaincfg"
	"github.com/kasbot/kasbot-server/errcode"
	"github.com/kasbot/kasbot-server/model"

	"github.com/google/uuid"
)

const (
	defaultTimeout   = 15 * time.Second
	maxResponseBytes = 1 << 20

	// basicAuthUser is the fixed user name of the wallet service, the
	// password alone identifies the owner.
	basicAuthUser = "0"
)

// UsernameToUUID derives the wallet identifier of a chat user.  The result is
// stable for a namespace so a user always maps to the same wallet.
func UsernameToUUID(namespace uuid.UUID, username string) string {
	return uuid.NewSHA1(namespace, []byte(username)).String()
}

// WalletPassword derives the password of a wallet from its identifier and the
// server side entropy.
func WalletPassword(walletUUID, entropy string) string {
	sum := sha256.Sum256([]byte(walletUUID + entropy))
	return hex.EncodeToString(sum[:])
}

// Client talks to the custodial wallet service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client of the wallet service at baseURL.  An empty baseURL
// selects the service of the active network.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = chaincfg.ActiveNetParams.WalletAPIURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid wallet service url %q: %v", errcode.ErrConfiguration, baseURL, err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path, password string, body interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if password != "" {
		req.SetBasicAuth(basicAuthUser, password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, content, nil
}

// GetWallet returns the wallet identified by walletUUID.
func (c *Client) GetWallet(ctx context.Context, walletUUID, password string) (*model.WalletInfo, error) {
	status, content, err := c.do(ctx, http.MethodGet, "/"+url.PathEscape(walletUUID), password, nil)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errcode.ErrWalletNotFound
	case http.StatusForbidden:
		return nil, errcode.ErrWalletPasswordIncorrect
	default:
		return nil, fmt.Errorf("%w: get wallet returned %d", errcode.ErrUpstreamStatus, status)
	}

	info := &model.WalletInfo{}
	if err := json.Unmarshal(content, info); err != nil {
		return nil, fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
	}
	if info.UUID == "" {
		info.UUID = walletUUID
	}
	return info, nil
}

// CreateWallet creates a wallet protected by password.  When walletUUID is
// empty the service picks the identifier.
func (c *Client) CreateWallet(ctx context.Context, password, walletUUID string) (*model.WalletInfo, error) {
	req := struct {
		Password string `json:"password"`
		UUID     string `json:"uuid,omitempty"`
	}{
		Password: password,
		UUID:     walletUUID,
	}
	status, content, err := c.do(ctx, http.MethodPost, "", "", &req)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", errcode.ErrWalletCreation, strings.TrimSpace(string(content)))
	default:
		return nil, fmt.Errorf("%w: create wallet returned %d", errcode.ErrUpstreamStatus, status)
	}

	info := &model.WalletInfo{}
	if err := json.Unmarshal(content, info); err != nil {
		return nil, fmt.Errorf("%w: %v", errcode.ErrUpstreamResponse, err)
	}
	if info.UUID == "" {
		info.UUID = walletUUID
	}
	log.Infof("Created wallet %v", info.UUID)
	return info, nil
}

// CreateTransaction sends amount sompi from the wallet to toAddr.  With
// inclusiveFee the fee is taken out of amount.
func (c *Client) CreateTransaction(ctx context.Context, walletUUID, password, toAddr string,
	amount uint64, inclusiveFee bool) (*model.Transaction, error) {

	if password == "" {
		return nil, errcode.ErrWalletPasswordIncorrect
	}
	req := struct {
		ToAddr       string `json:"toAddr"`
		Amount       uint64 `json:"amount"`
		InclusiveFee bool   `json:"inclusiveFee"`
	}{
		ToAddr:       toAddr,
		Amount:       amount,
		InclusiveFee: inclusiveFee,
	}
	status, content, err := c.do(ctx, http.MethodPost, "/"+url.PathEscape(walletUUID)+"/transactions", password, &req)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(string(content))

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
	case strings.Contains(text, "Password incorrect"):
		return nil, errcode.ErrWalletPasswordIncorrect
	case status == http.StatusBadRequest && strings.Contains(text, "Insufficient"):
		log.Infof("TX creation error: %v", text)
		return nil, fmt.Errorf("%w: %s", errcode.ErrWalletInsufficientBalance, text)
	case status == http.StatusBadRequest:
		log.Infof("TX creation error: %v", text)
		return nil, fmt.Errorf("%w: %s", errcode.ErrWalletTransaction, text)
	case status == http.StatusForbidden:
		return nil, errcode.ErrWalletPasswordIncorrect
	case status == http.StatusNotFound:
		return nil, errcode.ErrWalletNotFound
	default:
		return nil, fmt.Errorf("%w: create transaction returned %d", errcode.ErrUpstreamStatus, status)
	}

	tx := &model.Transaction{}
	if err := json.Unmarshal(content, tx); err != nil || len(tx.TxIDs) == 0 {
		// Older deployments answer with the bare transaction id.
		tx = &model.Transaction{TxIDs: []string{strings.Trim(text, `"`)}}
	}
	tx.ToAddr = toAddr
	if tx.Amount == 0 {
		tx.Amount = amount
	}
	return tx, nil
}
