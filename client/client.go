package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"showdown-agent/data"
)

var ErrLoginRejected = errors.New("login rechazado")

type ShowdownClient struct {
	Conn *websocket.Conn
	HTTP *http.Client

	log *slog.Logger
	// gorilla allows one concurrent writer; battle sessions send from their own goroutines.
	writeMu sync.Mutex
}

// Dial opens the websocket to the Showdown server.
func Dial(ctx context.Context, serverURL string, logger *slog.Logger) (*ShowdownClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("error al parsear la url del server: %w", err)
	}

	logger.Info("conectando", "url", u.String())
	c, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error al conectar con el websocket: %w", err)
	}

	client := &ShowdownClient{
		Conn: c,
		HTTP: &http.Client{Timeout: 15 * time.Second},
		log:  logger,
	}
	logger.Info("conectado exitosamente al servidor de showdown")

	return client, nil
}

// ReadMessage blocks for the next frame; one frame may hold many lines.
func (sc *ShowdownClient) ReadMessage() (string, error) {
	_, message, err := sc.Conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("error de lectura: %w", err)
	}
	return string(message), nil
}

func (sc *ShowdownClient) Send(message string) error {
	sc.log.Debug("enviando", "msg", message)
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	return sc.Conn.WriteMessage(websocket.TextMessage, []byte(message))
}

func (sc *ShowdownClient) JoinRoom(roomID string) error {
	return sc.Send(fmt.Sprintf("|/join %s", roomID))
}

func (sc *ShowdownClient) Leave(roomID string) error {
	return sc.Send(fmt.Sprintf("%s|/leave", roomID))
}

// Choose answers a request; rqid lets the server drop stale answers.
func (sc *ShowdownClient) Choose(roomID, choice string, rqid int) error {
	return sc.Send(fmt.Sprintf("%s|/choose %s|%d", roomID, choice, rqid))
}

func (sc *ShowdownClient) Accept(user string) error {
	return sc.Send(fmt.Sprintf("|/accept %s", user))
}

// Close sends a close frame and drops the connection.
func (sc *ShowdownClient) Close() error {
	sc.writeMu.Lock()
	_ = sc.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	sc.writeMu.Unlock()
	return sc.Conn.Close()
}

type loginResponse struct {
	ActionSuccess bool   `json:"actionsuccess"`
	Assertion     string `json:"assertion"`
	CurUser       struct {
		LoggedIn bool   `json:"loggedin"`
		Username string `json:"username"`
	} `json:"curuser"`
}

// Login trades challstr for an assertion at authURL and renames the
// connection with /trn. An empty password logs in an unregistered name.
func (sc *ShowdownClient) Login(ctx context.Context, authURL, user, pass, challstr string) error {
	var (
		assertion string
		err       error
	)
	if pass == "" {
		assertion, err = sc.guestAssertion(ctx, authURL, user, challstr)
	} else {
		assertion, err = sc.passwordAssertion(ctx, authURL, user, pass, challstr)
	}
	if err != nil {
		return err
	}
	if strings.HasPrefix(assertion, ";;") {
		return fmt.Errorf("%w: %s", ErrLoginRejected, strings.TrimPrefix(assertion, ";;"))
	}
	sc.log.Info("login correcto", "user", user)
	return sc.Send(fmt.Sprintf("|/trn %s,0,%s", user, assertion))
}

func (sc *ShowdownClient) passwordAssertion(ctx context.Context, authURL, user, pass, challstr string) (string, error) {
	form := url.Values{"name": {user}, "pass": {pass}, "challstr": {challstr}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(authURL, "/")+"/api/login",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error al crear la petición de login: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := sc.do(req)
	if err != nil {
		return "", err
	}
	// Responses are prefixed with "]" to defeat JSON hijacking.
	body = strings.TrimPrefix(body, "]")
	var resp loginResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", fmt.Errorf("error al decodificar la respuesta de login: %w", err)
	}
	if !resp.ActionSuccess || resp.Assertion == "" {
		return "", fmt.Errorf("%w: usuario %s", ErrLoginRejected, user)
	}
	return resp.Assertion, nil
}

func (sc *ShowdownClient) guestAssertion(ctx context.Context, authURL, user, challstr string) (string, error) {
	q := url.Values{"act": {"getassertion"}, "userid": {data.ToID(user)}, "challstr": {challstr}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimRight(authURL, "/")+"/action.php?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("error al crear la petición de login: %w", err)
	}
	body, err := sc.do(req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

func (sc *ShowdownClient) do(req *http.Request) (string, error) {
	res, err := sc.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("error al contactar el servidor de login: %w", err)
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("error al leer la respuesta de login: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrLoginRejected, res.StatusCode)
	}
	return string(b), nil
}
