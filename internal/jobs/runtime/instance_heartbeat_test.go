package runtime

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestInstanceIDIdentifiesProcess(t *testing.T) {
	id := InstanceID()
	hostname, _ := os.Hostname()
	if !strings.HasPrefix(id, hostname+"-") {
		t.Fatalf("instance id %q does not start with hostname %q", id, hostname)
	}
	if InstanceID() != id {
		t.Fatal("instance id must be stable for the process")
	}
	if generateInstanceID() == id {
		t.Fatal("expected a fresh id to differ")
	}
}

func TestHeartbeatPrefixScopesComponent(t *testing.T) {
	if got := heartbeatPrefix("wan-ip-monitor"); got != "essops:instance:wan-ip-monitor:" {
		t.Fatalf("unexpected prefix %q", got)
	}
}

func TestLaunchInstanceHeartbeatIsCounted(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	// A replica of another component must not be counted.
	mr.Set(heartbeatPrefix("ess-admin")+"other-host", "alive")

	stop := LaunchInstanceHeartbeat(context.Background(), client, "wan-ip-monitor")
	defer stop()

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for {
		count, err := CountActiveInstances(ctx, client, "wan-ip-monitor")
		if err != nil {
			t.Fatalf("CountActiveInstances: %v", err)
		}
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 active instance, got %d", count)
		}
		time.Sleep(10 * time.Millisecond)
	}

	key := heartbeatPrefix("wan-ip-monitor") + InstanceID()
	if ttl := mr.TTL(key); ttl <= 0 || ttl > DefaultHeartbeatTTL {
		t.Fatalf("heartbeat key ttl = %v, want within (0, %v]", ttl, DefaultHeartbeatTTL)
	}

	stop()
	mr.FastForward(DefaultHeartbeatTTL + time.Second)

	count, err := CountActiveInstances(ctx, client, "wan-ip-monitor")
	if err != nil {
		t.Fatalf("CountActiveInstances: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected expired heartbeat to drop out, got %d", count)
	}
}
