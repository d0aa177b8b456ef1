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

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call(serviceName+".Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Current returns the picture currently on screen.
func (c *Client) Current() (*CurrentResponse, error) {
	var resp CurrentResponse
	if err := c.client.Call(serviceName+".Current", CurrentRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh forces an immediate poll cycle.
func (c *Client) Refresh() (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.client.Call(serviceName+".Refresh", RefreshRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History lists journaled pictures, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call(serviceName+".History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop asks the daemon process to shut down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call(serviceName+".Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
