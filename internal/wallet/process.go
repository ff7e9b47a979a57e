package wallet

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/stellarpay-dev/stellarpay/internal/logging"
)

// JSON-RPC 2.0 message types.

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      any    `json:"id,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// RPCError is an error object returned by the signer.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("signer error %d: %s", e.Code, e.Message)
}

const codeMethodNotFound = -32601

// ErrProcessExited is returned for calls pending when the signer exits.
var ErrProcessExited = errors.New("signer process exited")

// ProcessConfig describes the signer executable.
type ProcessConfig struct {
	Command string
	Args    []string
	Env     []string  // appended to the current environment
	Stderr  io.Writer // defaults to os.Stderr, where signers prompt
}

// Process runs an external signer as a subprocess and speaks
// newline-delimited JSON-RPC 2.0 with it over stdio.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	reader  *bufio.Reader
	mu      sync.Mutex
	nextID  int
	pending map[int]chan *rpcResponse
	done    chan struct{}
	logger  *slog.Logger
}

var _ Extension = (*Process)(nil)

// StartProcess launches the signer described by cfg.
func StartProcess(cfg ProcessConfig, logger *slog.Logger) (*Process, error) {
	if cfg.Command == "" {
		return nil, errors.New("signer command is empty")
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Stderr = cfg.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start signer: %w", err)
	}

	p := &Process{
		cmd:     cmd,
		stdin:   stdin,
		reader:  bufio.NewReader(stdout),
		pending: make(map[int]chan *rpcResponse),
		done:    make(chan struct{}),
		logger:  logging.OrDiscard(logger),
	}
	go p.readLoop()
	return p, nil
}

// Call sends a request and waits for its response, the process exiting,
// or ctx being done. There is no built-in timeout.
func (p *Process) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	ch := make(chan *rpcResponse, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	if err := p.send(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}); err != nil {
		p.forget(id)
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		return unwrapResponse(method, resp)
	case <-p.done:
		// A response may have landed just before the process exited.
		select {
		case resp := <-ch:
			return unwrapResponse(method, resp)
		default:
			return nil, ErrProcessExited
		}
	case <-ctx.Done():
		p.forget(id)
		return nil, ctx.Err()
	}
}

func unwrapResponse(method string, resp *rpcResponse) (json.RawMessage, error) {
	if resp.Error != nil {
		if resp.Error.Code == codeMethodNotFound {
			return nil, fmt.Errorf("%s: %w", method, ErrMethodNotFound)
		}
		return nil, resp.Error
	}
	return resp.Result, nil
}

// Close sends the shutdown notification and waits for the process.
func (p *Process) Close() error {
	_ = p.send(rpcRequest{JSONRPC: "2.0", Method: "shutdown"})
	_ = p.stdin.Close()
	return p.cmd.Wait()
}

func (p *Process) forget(id int) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *Process) send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	p.mu.Lock()
	_, err = fmt.Fprintf(p.stdin, "%s\n", data)
	p.mu.Unlock()
	return err
}

func (p *Process) readLoop() {
	defer close(p.done)
	for {
		line, err := p.reader.ReadBytes('\n')
		if len(line) > 0 {
			p.dispatch(line)
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) dispatch(line []byte) {
	var msg rpcResponse
	if err := json.Unmarshal(line, &msg); err != nil {
		p.logger.Debug("ignoring non-JSON signer output", "error", err)
		return
	}

	id := toInt(msg.ID)
	p.mu.Lock()
	ch, ok := p.pending[id]
	if ok {
		delete(p.pending, id)
	}
	p.mu.Unlock()
	if !ok {
		p.logger.Debug("ignoring unsolicited signer message", "id", msg.ID)
		return
	}
	ch <- &msg
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
