// Package mct implements the mission control table (MCT) query layer
// (C3): a read-mostly relational snapshot of the system's declarative
// configuration, loaded on startup and on reload, exposed to the rest of
// the supervisor through a small set of prepared, mutex-guarded queries.
package mct

// Parameter is a declared numeric input or output slot. Its live value
// does not live in this table — it lives in the publication region's
// parameter array at index id-1. This row only carries identity and
// metadata.
type Parameter struct {
	ID   uint32 `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null"`
	Type string `gorm:"column:type;not null"`
	Port string `gorm:"column:port"`
}

func (Parameter) TableName() string { return "paramTable" }

// Rule is a periodic (equation, action) pair. Armed only while a state
// referencing it (via StateRuleLink) is the current state.
type Rule struct {
	ID            uint32  `gorm:"primaryKey;column:id"`
	Name          string  `gorm:"column:name;not null"`
	PeriodSeconds float64 `gorm:"column:period_seconds;not null"`
	Equation      string  `gorm:"column:equation;not null"`
	Action        uint32  `gorm:"column:action;not null"`
	Option        string  `gorm:"column:option"`
}

func (Rule) TableName() string { return "ruleTable" }

// FlightLeg is an opaque integer identifier with a human-readable name.
// It acts only as one half of a (leg, mode) coordinate.
type FlightLeg struct {
	ID   uint32 `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null"`
}

func (FlightLeg) TableName() string { return "flightLegTable" }

// OpMode is an opaque integer identifier with a human-readable name. It
// acts only as the other half of a (leg, mode) coordinate.
type OpMode struct {
	ID   uint32 `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null"`
}

func (OpMode) TableName() string { return "opModeTable" }

// State binds a (leg, mode) coordinate to a schedule. The pair (leg, mode)
// is unique across states. id 0 (HALTED) is synthetic and never stored.
type State struct {
	ID         uint32 `gorm:"primaryKey;column:id"`
	Name       string `gorm:"column:name;not null"`
	ScheduleID uint32 `gorm:"column:schedule_ref;not null"`
	Leg        uint32 `gorm:"column:leg;not null;uniqueIndex:idx_leg_mode"`
	Mode       uint32 `gorm:"column:mode;not null;uniqueIndex:idx_leg_mode"`
}

func (State) TableName() string { return "stateTable" }

// StateRuleLink is the many-to-many join defining which rules are armed
// while a given state is current.
type StateRuleLink struct {
	StateID uint32 `gorm:"primaryKey;column:state_id"`
	RuleID  uint32 `gorm:"primaryKey;column:rule_id"`
}

func (StateRuleLink) TableName() string { return "stateRuleLink" }

// Schedule is a named CPU scheduling plan. id 0 is a stored convention
// meaning "no schedule" (safe/halted), pre-seeded on snapshot creation.
type Schedule struct {
	ID        uint32 `gorm:"primaryKey;column:id"`
	Name      string `gorm:"column:name;not null;unique"`
	Timeslice uint32 `gorm:"column:timeslice;not null"`
}

func (Schedule) TableName() string { return "scheduleTable" }

// Partition is a hypervisor-managed guest under MCP control. Live
// runtime state (dom_state, hypervisor_id, observed_hv_state) is NOT
// part of this row; it is held in internal/partition's in-memory
// controller, since the spec scopes it as RAM-only live state.
type Partition struct {
	ID   uint32 `gorm:"primaryKey;column:id"`
	Name string `gorm:"column:name;not null;unique"`
}

func (Partition) TableName() string { return "partitionTable" }

// SchedulePartitionAllocation maps a (schedule, partition) pair to a CPU
// weight and cap, unique on the pair.
type SchedulePartitionAllocation struct {
	ScheduleID  uint32 `gorm:"primaryKey;column:schedule_id"`
	PartitionID uint32 `gorm:"primaryKey;column:partition_id"`
	Weight      uint32 `gorm:"column:weight;not null"`
	CPUCap      uint32 `gorm:"column:cpucap;not null"`
}

func (SchedulePartitionAllocation) TableName() string {
	return "schedulePartitionAllocation"
}

// AllModels returns every gorm model the MCT schema is composed of, for
// AutoMigrate.
func AllModels() []any {
	return []any{
		&Parameter{},
		&Rule{},
		&FlightLeg{},
		&OpMode{},
		&State{},
		&StateRuleLink{},
		&Schedule{},
		&Partition{},
		&SchedulePartitionAllocation{},
	}
}

// HaltedStateID is the synthetic state id meaning no current state: no
// rules are armed and the current schedule is 0.
const HaltedStateID uint32 = 0

// HaltedState is the well-known sentinel returned for state id 0 instead
// of querying the state table, since HALTED is never stored as a row.
var HaltedState = State{
	ID:         HaltedStateID,
	Name:       "HALTED",
	ScheduleID: 0,
}

// NoScheduleID is the stored (non-synthetic) schedule id meaning "no
// schedule" (safe/halted).
const NoScheduleID uint32 = 0
