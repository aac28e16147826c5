// Package pvd streams simulation frames to a remote visual debugger over a
// websocket. Frames are msgpack encoded. The connection is optional: a
// refused dial returns ErrTransportUnavailable and the simulation carries
// on without it.
package pvd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/hashicorp/go-msgpack/v2/codec"
	"go.uber.org/zap"

	"github.com/Faultbox/physics-samples/internal/physics/world"
)

// ErrTransportUnavailable is returned when the debugger cannot be reached.
var ErrTransportUnavailable = errors.New("debug transport unavailable")

// DefaultTimeout bounds the dial when Config.Timeout is zero.
const DefaultTimeout = 2 * time.Second

// ActorState is the pose of one actor in a frame.
type ActorState struct {
	ID        uint32     `codec:"id"`
	Name      string     `codec:"name,omitempty"`
	Kind      string     `codec:"kind"`
	Kinematic bool       `codec:"kinematic,omitempty"`
	Position  [3]float64 `codec:"p"`
	Rotation  [4]float64 `codec:"q"`
}

// Frame is one simulation step as seen by the debugger.
type Frame struct {
	Step   uint64       `codec:"step"`
	Time   float64      `codec:"time"`
	Actors []ActorState `codec:"actors"`
	Lines  int          `codec:"lines"`
}

// Snapshot captures the current state of a scene.
func Snapshot(s *world.Scene) Frame {
	f := Frame{
		Step:   s.StepCount(),
		Time:   s.Time(),
		Actors: make([]ActorState, 0, len(s.Actors())),
		Lines:  len(s.RenderBuffer()),
	}
	for _, a := range s.Actors() {
		p := a.GlobalPose()
		f.Actors = append(f.Actors, ActorState{
			ID:        a.ID(),
			Name:      a.Name,
			Kind:      a.Type().String(),
			Kinematic: a.IsKinematic(),
			Position:  [3]float64{p.P[0], p.P[1], p.P[2]},
			Rotation:  [4]float64{p.Q.V[0], p.Q.V[1], p.Q.V[2], p.Q.W},
		})
	}
	return f
}

var handle codec.MsgpackHandle

// Encode serializes a frame.
func Encode(f *Frame) ([]byte, error) {
	var b []byte
	if err := codec.NewEncoderBytes(&b, &handle).Encode(f); err != nil {
		return nil, fmt.Errorf("encoding frame %d: %w", f.Step, err)
	}
	return b, nil
}

// Decode parses a frame produced by Encode.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if err := codec.NewDecoderBytes(b, &handle).Decode(&f); err != nil {
		return Frame{}, fmt.Errorf("decoding frame: %w", err)
	}
	return f, nil
}

// Config configures the debugger connection.
type Config struct {
	// Address is a ws:// or wss:// URL.
	Address string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client publishes frames to a connected debugger. Publish never blocks;
// a frame still queued when the next arrives is replaced.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	frames chan []byte
	done   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	sent    uint64
	lastErr error
	closed  bool
}

// Connect dials the debugger.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: no address", ErrTransportUnavailable)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, cfg.Address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrTransportUnavailable, cfg.Address, err)
	}

	c := &Client{
		conn:   conn,
		log:    log,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	c.wg.Add(1)
	go c.writeLoop()
	log.Info("visual debugger connected", zap.String("address", cfg.Address))
	return c, nil
}

// Publish queues a snapshot of s for sending.
func (c *Client) Publish(s *world.Scene) {
	f := Snapshot(s)
	b, err := Encode(&f)
	if err != nil {
		c.log.Warn("dropping debugger frame", zap.Error(err))
		return
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	select { // drain stale, push latest
	case <-c.frames:
	default:
	}
	select {
	case c.frames <- b:
	default:
	}
}

func (c *Client) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case b := <-c.frames:
			ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
			err := c.conn.Write(ctx, websocket.MessageBinary, b)
			cancel()
			c.mu.Lock()
			if err != nil {
				if c.lastErr == nil {
					c.log.Warn("visual debugger write failed", zap.Error(err))
				}
				c.lastErr = err
			} else {
				c.sent++
			}
			c.mu.Unlock()
		}
	}
}

// Sent returns the number of frames written.
func (c *Client) Sent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Err returns the last write error.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Close stops the writer and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
