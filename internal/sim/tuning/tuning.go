// Package tuning loads the operator-editable simulation parameters. The YAML
// file is validated against an embedded JSON schema before anything reads it,
// so a typo fails at startup instead of surfacing as odd behavior mid-run.
package tuning

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed tuning.schema.json
var schemaJSON string

type Tuning struct {
	TickRateHz         int `yaml:"tick_rate_hz"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Terrain  Terrain  `yaml:"terrain"`
	Movement Movement `yaml:"movement"`
	Factions int      `yaml:"factions"`
}

type Terrain struct {
	GridSize      int `yaml:"grid_size"`
	TilesPerChunk int `yaml:"tiles_per_chunk"`
	StepHeight    int `yaml:"step_height"`
	MaxHeight     int `yaml:"max_height"`
	WaterLevel    int `yaml:"water_level"`
}

type Movement struct {
	MoveSpeedMilli         int `yaml:"move_speed_milli"`
	ArriveLeewayMilli      int `yaml:"arrive_leeway_milli"`
	StrengthDecayWaypoints int `yaml:"strength_decay_waypoints"`
	RoamRedirectSteps      int `yaml:"roam_redirect_steps"`
	SettleRetryTicks       int `yaml:"settle_retry_ticks"`
	SettleScanRadius       int `yaml:"settle_scan_radius"`
	InitialStrength        int `yaml:"initial_strength"`
	PathExpansionCap       int `yaml:"path_expansion_cap"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}

	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	schema, err := jsonschema.CompileString("tuning.schema.json", schemaJSON)
	if err != nil {
		return t, fmt.Errorf("tuning schema: %w", err)
	}
	if err := schema.Validate(generic); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}

	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
