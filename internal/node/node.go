// Package node runs a speed controller against two live input streams.
//
// The pose stream and the setpoint stream are each drained by their own
// goroutine, so a slow producer on one never delays the other. Both share
// a single [speed.Controller], which serializes their updates.
package node

import (
	"context"
	"sync"

	"github.com/san-kum/speedpid/internal/estimate"
	"github.com/san-kum/speedpid/internal/logging"
	"github.com/san-kum/speedpid/internal/speed"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Publisher receives one control output per pose update.
type Publisher interface {
	Publish(output float64)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(output float64)

func (f PublisherFunc) Publish(output float64) { f(output) }

// Config names the streams for logging. The node itself does not own any
// transport.
type Config struct {
	PoseTopic     string
	SetpointTopic string
	OutputTopic   string
}

func DefaultConfig() Config {
	return Config{
		PoseTopic:     "amcl_pose",
		SetpointTopic: "speed_cmd",
		OutputTopic:   "/tiger_car/speed",
	}
}

// Node feeds pose and setpoint streams into a Controller and publishes
// each output.
type Node struct {
	ctrl *speed.Controller
	pub  Publisher
	cfg  Config

	mu        sync.Mutex
	published uint64
}

// New returns a Node that publishes ctrl's outputs through pub.
func New(ctrl *speed.Controller, pub Publisher, cfg Config) *Node {
	return &Node{ctrl: ctrl, pub: pub, cfg: cfg}
}

// Run drains both streams until ctx is cancelled or both channels are
// closed. Samples on each stream are applied in the order they arrive.
func (n *Node) Run(ctx context.Context, poses <-chan estimate.PoseSample, setpoints <-chan float64) error {
	log := logging.L().With(
		zap.String("pose_topic", n.cfg.PoseTopic),
		zap.String("setpoint_topic", n.cfg.SetpointTopic),
		zap.String("output_topic", n.cfg.OutputTopic))
	log.Info("speed controller node started")
	defer log.Info("speed controller node stopped")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case p, ok := <-poses:
				if !ok {
					return nil
				}
				out := n.ctrl.UpdatePose(p)
				n.pub.Publish(out)
				n.mu.Lock()
				n.published++
				n.mu.Unlock()
			}
		}
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case v, ok := <-setpoints:
				if !ok {
					return nil
				}
				n.ctrl.UpdateSetpoint(v)
			}
		}
	})
	return g.Wait()
}

// Published returns how many outputs have been published.
func (n *Node) Published() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.published
}
