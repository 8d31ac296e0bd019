package builder

import (
	"github.com/cuemby/reactix/pkg/enclave"
	"github.com/cuemby/reactix/pkg/keys"
)

// Assemble turns a BuiltTopology into one enclave.Enclave per partition,
// wiring the forward message link each CrossEnclaveLink needs plus a
// barrier on the downstream side, and a reverse link so a downstream can
// send a MsgTagReleaseProvisional back upstream per §4.5.
func (t *BuiltTopology) Assemble() map[keys.EnclaveKey]*enclave.Enclave {
	enclaves := make(map[keys.EnclaveKey]*enclave.Enclave, len(t.Envs))
	for key, env := range t.Envs {
		enclaves[key] = enclave.New(key, env)
	}

	for _, link := range t.Links {
		home, ok := enclaves[link.HomeEnclave]
		if !ok {
			continue
		}
		down, ok := enclaves[link.DownEnclave]
		if !ok {
			continue
		}
		home.LinkDownstream(link.DownEnclave, down.Events)
		down.LinkUpstream(link.HomeEnclave, link.Delay)
		down.LinkDownstream(link.HomeEnclave, home.Events)
		home.OutLinks = append(home.OutLinks, enclave.OutLink{
			HomePort: link.HomePort,
			To:       link.DownEnclave,
			DownPort: link.DownPort,
			Delay:    link.Delay,
		})
	}

	return enclaves
}
