package sol

import (
	"context"

	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Client wraps the Solana RPC client with a shared rate limit and an
// optional Jito bundle endpoint.
type Client struct {
	rpcClient   *rpc.Client
	jitoClient  *JitoClient
	rateLimiter *RateLimiter
	logger      *zap.Logger
}

// NewClient creates a new Solana client with custom rate limiting. A Jito
// endpoint that cannot be reached is logged and skipped; SendTxWithJito then
// fails with ErrJitoDisabled.
func NewClient(ctx context.Context, endpoint, jitoEndpoint string, reqLimitPerSecond int, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		rpcClient:   rpc.New(endpoint),
		rateLimiter: NewRateLimiter(reqLimitPerSecond),
		logger:      logger.Named("sol"),
	}

	if jitoEndpoint != "" {
		jitoClient, err := NewJitoClient(ctx, jitoEndpoint)
		if err != nil {
			c.logger.Warn("jito client disabled", zap.String("endpoint", jitoEndpoint), zap.Error(err))
		} else {
			c.jitoClient = jitoClient
		}
	}
	return c, nil
}
