package group

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// Open joins the group described by m. A group of one needs no transport;
// otherwise the coordinator listens on listenAddr and every other rank dials
// coordinatorAddr.
func Open(m Membership, listenAddr, coordinatorAddr string, dialTimeout time.Duration, logger logrus.FieldLogger) (Group, error) {
	if m.Size == 1 {
		return NewLocal(1)[0], nil
	}
	if m.Rank != Coordinator {
		return Dial(coordinatorAddr, m, dialTimeout, logger)
	}
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen gather endpoint %s: %w", listenAddr, err)
	}
	return Serve(lis, m, logger)
}
