package ledgerrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/stakeledger/model"
	"xdao.co/stakeledger/snapshot"
)

// Client queries a remote ledger over the LedgerQuery service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerQueryClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: NewLedgerQueryClient(cc)}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Balance(ctx context.Context) (decimal.Decimal, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Balance(ctx, &emptypb.Empty{})
	if err != nil {
		return decimal.Zero, mapRPC(err)
	}
	return decimal.NewFromString(reply.GetValue())
}

func (c *Client) AmountStaked(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.AmountStaked(ctx, wrapperspb.String(id.String()))
	if err != nil {
		return decimal.Zero, mapRPC(err)
	}
	return decimal.NewFromString(reply.GetValue())
}

func (c *Client) Members(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Members(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapRPC(err)
	}
	out := make([]uuid.UUID, 0, len(reply.GetValues()))
	for _, v := range reply.GetValues() {
		id, err := uuid.Parse(v.GetStringValue())
		if err != nil {
			return nil, fmt.Errorf("ledgerrpc: invalid member id %q: %w", v.GetStringValue(), err)
		}
		out = append(out, id)
	}
	return out, nil
}

// State fetches the ledger state; the bytes must be canonical.
func (c *Client) State(ctx context.Context) (model.LedgerState, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.State(ctx, &emptypb.Empty{})
	if err != nil {
		return model.LedgerState{}, mapRPC(err)
	}
	return snapshot.Decode(reply.GetValue())
}

func (c *Client) Audit(ctx context.Context) error {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err := c.client.Audit(ctx, &emptypb.Empty{})
	return mapRPC(err)
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
