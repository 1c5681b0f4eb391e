// Package sdnotify reports service state to systemd. Every call is a no-op
// when the process was not started by systemd with NOTIFY_SOCKET set.
package sdnotify

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "datenbriefd/pkg/logx"
)

// Notifier sends sd_notify messages. The zero value is usable.
type Notifier struct {
	// UnsetEnv clears NOTIFY_SOCKET after the first message.
	UnsetEnv bool
	// Log receives watchdog problems. The zero value discards them.
	Log  logx.Logger
	send func(unsetEnv bool, state string) (bool, error)
}

func (n *Notifier) notify(state string) (bool, error) {
	if n.send != nil {
		return n.send(n.UnsetEnv, state)
	}
	return daemon.SdNotify(n.UnsetEnv, state)
}

// Ready tells systemd that startup finished.
func (n *Notifier) Ready() (bool, error) { return n.notify(daemon.SdNotifyReady) }

// Stopping tells systemd that shutdown started.
func (n *Notifier) Stopping() (bool, error) { return n.notify(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func (n *Notifier) Status(s string) (bool, error) { return n.notify("STATUS=" + s) }

// Watchdog pings the systemd watchdog at half the configured interval
// until ctx is done. It returns at once when no watchdog is set or the
// watchdog variables do not parse. Neither that nor a failed ping stops
// the daemon; systemd acts on missed pings itself.
func (n *Notifier) Watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		n.Log.Warn("systemd watchdog disabled", logx.Err(err))
		return nil
	}
	if interval <= 0 {
		return nil
	}
	n.Log.Debug("systemd watchdog enabled", logx.Duration("interval", interval))
	return n.watchdogLoop(ctx, interval/2)
}

func (n *Notifier) watchdogLoop(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := n.notify(daemon.SdNotifyWatchdog); err != nil {
				n.Log.Warn("systemd watchdog ping failed", logx.Err(err))
			}
		}
	}
}
