package registry

import (
	"strings"

	"github.com/loykin/launchr/internal/process"
)

// agentWorkers lists the voice agent entrypoints under backend/src. Each one
// runs in dev mode and stays up until signaled.
var agentWorkers = []string{
	"agent",
	"barista_agent",
	"food_agent",
	"fraud_detection_agent",
	"game_master_agent",
	"sdr_agent",
	"tutor_agent",
	"wellness_agent",
}

// Builtin returns the default development stack: the media server in dev
// mode, one worker per agent script, and the frontend dev server. It is the
// registry source when no config file is given.
func Builtin() []process.Spec {
	specs := make([]process.Spec, 0, len(agentWorkers)+2)
	specs = append(specs, process.Spec{
		Name:    "media",
		Command: "livekit-server --dev",
	})
	for _, a := range agentWorkers {
		specs = append(specs, process.Spec{
			Name:    strings.ReplaceAll(a, "_", "-"),
			Command: "python3 src/" + a + ".py dev",
			WorkDir: "backend",
		})
	}
	specs = append(specs, process.Spec{
		Name:    "frontend",
		Command: "npm run dev",
		WorkDir: "frontend",
	})
	return specs
}
