package xlexec

import (
	"bytes"
	"testing"

	"github.com/flightos/mcpd/pkg/hypervisor"
)

func TestParseDomainList_SkipsHeaderAndParsesState(t *testing.T) {
	input := `Name                ID   Mem VCPUs State   Time(s)
Domain-0             0   2048     4 r-----   123.4
guest1               3    512     1 -b----    45.6
guest2                -    256     1 --p---     0.1
`
	domains, err := parseDomainList(bytes.NewBufferString(input))
	if err != nil {
		t.Fatalf("parseDomainList() error = %v", err)
	}
	if len(domains) != 2 {
		t.Fatalf("len(domains) = %d, want 2 (guest2 has a non-numeric id and is skipped)", len(domains))
	}

	if domains[0].Name != "Domain-0" || domains[0].ID != 0 || domains[0].State != hypervisor.DomainRunning {
		t.Errorf("domains[0] = %+v, want {Domain-0 0 running}", domains[0])
	}
	if domains[1].Name != "guest1" || domains[1].ID != 3 || domains[1].State != hypervisor.DomainBlocked {
		t.Errorf("domains[1] = %+v, want {guest1 3 blocked}", domains[1])
	}
}

func TestParseState_PriorityMatchesDyingOverOthers(t *testing.T) {
	if got := parseState("rd----"); got != hypervisor.DomainDying {
		t.Errorf("parseState(rd----) = %v, want dying", got)
	}
}

func TestParseState_UnknownWhenNoFlagSet(t *testing.T) {
	if got := parseState("------"); got != hypervisor.DomainUnknown {
		t.Errorf("parseState(------) = %v, want unknown", got)
	}
}
