package group

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

var errEndpointClosed = errors.New("gather endpoint closed")

const (
	serviceName   = "xthi.gather.v1.Gather"
	deliverMethod = "/" + serviceName + "/Deliver"
)

// DeliverRequest is the single message a sender issues.
type DeliverRequest struct {
	Rank    int    `cbor:"rank"`
	Threads int    `cbor:"threads"`
	Block   []byte `cbor:"block"`
}

type DeliverReply struct {
	Accepted bool `cbor:"accepted"`
}

type deliverer interface {
	deliver(ctx context.Context, req *DeliverRequest) (*DeliverReply, error)
}

var gatherServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*deliverer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Deliver", Handler: deliverHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xthi/gather",
}

func deliverHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeliverRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(deliverer).deliver(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: deliverMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(deliverer).deliver(ctx, req.(*DeliverRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// GRPC is a group member talking to the coordinator over gRPC. The
// coordinator serves one unary Deliver method whose handler does not return
// until Recv has taken the block, which makes every Send synchronous.
type GRPC struct {
	logger logrus.FieldLogger
	member Membership
	status *Status

	// Coordinator side.
	server  *grpc.Server
	box     *mailbox
	serving context.Context
	stop    context.CancelCauseFunc
	done    chan struct{}

	// Sender side.
	mu          sync.Mutex
	addr        string
	dialTimeout time.Duration
	conn        *grpc.ClientConn
}

// Serve starts the coordinator endpoint on lis. m.Rank must be the coordinator.
func Serve(lis net.Listener, m Membership, logger logrus.FieldLogger) (*GRPC, error) {
	if m.Rank != Coordinator {
		return nil, fmt.Errorf("%w: rank %d cannot serve", ErrRank, m.Rank)
	}
	serving, stop := context.WithCancelCause(context.Background())
	g := &GRPC{
		logger:  logger,
		member:  m,
		status:  NewStatus(),
		server:  grpc.NewServer(),
		box:     newMailbox(m.Size),
		serving: serving,
		stop:    stop,
		done:    make(chan struct{}),
	}
	g.server.RegisterService(&gatherServiceDesc, g)
	g.status.SetServing(true)

	go func() {
		defer close(g.done)
		err := g.server.Serve(lis)
		g.status.SetServing(false)
		if err != nil {
			g.logger.WithError(err).Error("gather endpoint stopped")
			stop(fmt.Errorf("serve gather endpoint: %w", err))
			return
		}
		stop(errEndpointClosed)
	}()

	logger.WithFields(logrus.Fields{"addr": lis.Addr().String(), "size": m.Size}).Debug("gather endpoint listening")
	return g, nil
}

// Dial prepares a sender for the coordinator at addr. The connection is
// established on the first Send and waits up to dialTimeout for the
// coordinator to come up.
func Dial(addr string, m Membership, dialTimeout time.Duration, logger logrus.FieldLogger) (*GRPC, error) {
	if m.Rank == Coordinator {
		return nil, fmt.Errorf("%w: coordinator does not dial", ErrRank)
	}
	if addr == "" {
		return nil, errors.New("coordinator address is empty")
	}
	if dialTimeout <= 0 {
		dialTimeout = 8 * time.Second
	}
	return &GRPC{
		logger:      logger,
		member:      m,
		status:      NewStatus(),
		addr:        addr,
		dialTimeout: dialTimeout,
	}, nil
}

func (g *GRPC) Rank() int      { return g.member.Rank }
func (g *GRPC) Size() int      { return g.member.Size }
func (g *GRPC) LocalRank() int { return g.member.LocalRank }
func (g *GRPC) LocalSize() int { return g.member.LocalSize }

// Status reports coordinator progress.
func (g *GRPC) Status() *Status {
	return g.status
}

func (g *GRPC) Send(ctx context.Context, block []byte, threads int) error {
	if g.member.Rank == Coordinator {
		return fmt.Errorf("%w: coordinator does not send", ErrRank)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.ensureConnLocked(ctx); err != nil {
		return err
	}

	req := &DeliverRequest{Rank: g.member.Rank, Threads: threads, Block: block}
	reply := new(DeliverReply)
	if err := g.conn.Invoke(ctx, deliverMethod, req, reply, grpc.WaitForReady(true)); err != nil {
		return fmt.Errorf("deliver block to coordinator %s: %w", g.addr, err)
	}
	if !reply.Accepted {
		return fmt.Errorf("coordinator %s did not accept block from rank %d", g.addr, g.member.Rank)
	}
	return nil
}

func (g *GRPC) Recv(ctx context.Context, from int) (Delivery, error) {
	if g.box == nil {
		return Delivery{}, fmt.Errorf("%w: rank %d is not the coordinator", ErrRank, g.member.Rank)
	}
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	stop := context.AfterFunc(g.serving, func() { cancel(context.Cause(g.serving)) })
	defer stop()

	d, err := g.box.take(ctx, from)
	if err != nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(err, ErrRank) {
			err = cause
		}
		return Delivery{}, fmt.Errorf("receive from rank %d: %w", from, err)
	}
	g.status.MarkDelivered(time.Now())
	g.logger.WithFields(logrus.Fields{
		"peer":   from,
		"status": g.status.Snapshot(),
	}).Debug("block received")
	return d, nil
}

func (g *GRPC) Close() error {
	if g.server != nil {
		// Release handlers still waiting for a Recv that will never come.
		g.stop(errEndpointClosed)
		g.server.GracefulStop()
		<-g.done
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn != nil {
		err := g.conn.Close()
		g.conn = nil
		return err
	}
	return nil
}

func (g *GRPC) deliver(ctx context.Context, req *DeliverRequest) (*DeliverReply, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(g.serving, cancel)
	defer stop()

	err := g.box.post(ctx, Delivery{Rank: req.Rank, Threads: req.Threads, Block: req.Block})
	switch {
	case errors.Is(err, ErrRank):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case err != nil:
		return nil, status.FromContextError(err).Err()
	}
	return &DeliverReply{Accepted: true}, nil
}

func (g *GRPC) ensureConnLocked(ctx context.Context) error {
	if g.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(ctx, g.dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		g.addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(cborCodec{}), grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return fmt.Errorf("grpc dial coordinator %s: %w", g.addr, err)
	}
	g.conn = conn
	g.logger.WithFields(logrus.Fields{"addr": g.addr, "rank": g.member.Rank}).Debug("connected to coordinator")
	return nil
}
