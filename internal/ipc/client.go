package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a card folder or clip.
func (c *Client) Submit(path string) (*SubmitResponse, error) {
	return call[SubmitRequest, SubmitResponse](c, "Submit", SubmitRequest{Path: path})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// History lists recent batches.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	return call[HistoryRequest, HistoryResponse](c, "History", HistoryRequest{Limit: limit})
}

// JobClips returns one batch with its clip outcomes.
func (c *Client) JobClips(id string) (*JobClipsResponse, error) {
	return call[JobClipsRequest, JobClipsResponse](c, "JobClips", JobClipsRequest{ID: id})
}

// Prompts lists prompts waiting for an answer.
func (c *Client) Prompts() (*PromptsResponse, error) {
	return call[PromptsRequest, PromptsResponse](c, "Prompts", PromptsRequest{})
}

// Answer resolves a pending prompt.
func (c *Client) Answer(req AnswerRequest) (*AnswerResponse, error) {
	return call[AnswerRequest, AnswerResponse](c, "Answer", req)
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailRequest, LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
