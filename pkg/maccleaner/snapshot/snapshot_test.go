package snapshot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g4youu/MacCleaner/pkg/maccleaner/snapshot"
	"github.com/g4youu/MacCleaner/pkg/maccleaner/types"
)

// fakeRunner serves canned output per command name instead of executing
// anything.
type fakeRunner struct {
	outputs map[string][]byte
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, name string, _ ...string) ([]byte, error) {
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	if out, ok := f.outputs[name]; ok {
		return out, nil
	}
	return nil, errors.New("command not faked: " + name)
}

const vmStatFixture = `Mach Virtual Memory Statistics: (page size of 16384 bytes)
Pages free:                              66522.
Pages active:                           389436.
Pages inactive:                         372586.
Pages speculative:                        5301.
Pages throttled:                             0.
Pages wired down:                       115966.
Pages purgeable:                         11743.
"Translation faults":                805079033.
Pages copy-on-write:                  38539198.
Pages zero filled:                   365475064.
Pages reactivated:                    21659711.
Pages purged:                          7496610.
File-backed pages:                      127341.
Anonymous pages:                        639982.
Pages stored in compressor:            1194826.
Pages occupied by compressor:           352923.
Decompressions:                       19859766.
Compressions:                         24491303.
Pageins:                               6227714.
Pageouts:                               104640.
Swapins:                                271613.
Swapouts:                               331566.
`

const sixteenGiB = uint64(17179869184)

func TestParseVMStat(t *testing.T) {
	snap, err := snapshot.ParseVMStat([]byte(vmStatFixture), sixteenGiB)
	require.NoError(t, err)

	// page size 16384: free = (66522+372586) pages, used = (389436+115966+352923) pages
	assert.Equal(t, uint64(7194345472), snap.Free)
	assert.Equal(t, uint64(14062796800), snap.Used)
	assert.Equal(t, uint64(6380519424), snap.Active)
	assert.Equal(t, uint64(6104449024), snap.Inactive)
	assert.Equal(t, uint64(1899986944), snap.Wired)
	assert.Equal(t, uint64(5782290432), snap.Compressed)
	assert.Equal(t, sixteenGiB, snap.Total)
	assert.Equal(t, 82, snap.UsedPercent)
}

func TestParseVMStat_DefaultPageSize(t *testing.T) {
	out := []byte(`Pages free: 1000.
Pages active: 2000.
Pages inactive: 500.
Pages wired down: 300.
Pages occupied by compressor: 200.
`)

	snap, err := snapshot.ParseVMStat(out, 0)
	require.NoError(t, err)

	// No header: falls back to 4096-byte pages.
	assert.Equal(t, uint64(1500*4096), snap.Free)
	assert.Equal(t, uint64(2500*4096), snap.Used)
	assert.Equal(t, 0, snap.UsedPercent, "zero total leaves percent at zero")
}

func TestParseVMStat_Garbage(t *testing.T) {
	tests := []struct {
		name string
		out  string
	}{
		{name: "empty", out: ""},
		{name: "not vm_stat at all", out: "command not found\n"},
		{name: "only noise lines", out: "nothing: here\nthat parses: badly\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := snapshot.ParseVMStat([]byte(tt.out), sixteenGiB)
			require.Error(t, err)
			assert.ErrorIs(t, err, snapshot.ErrSnapshotUnavailable)
		})
	}
}

func TestParseVMStat_PercentClamped(t *testing.T) {
	out := []byte(`Mach Virtual Memory Statistics: (page size of 4096 bytes)
Pages free: 10.
Pages active: 100000.
Pages inactive: 10.
Pages wired down: 100000.
Pages occupied by compressor: 100000.
`)

	// Total far below used: percent must clamp to 100, never overflow.
	snap, err := snapshot.ParseVMStat(out, 4096)
	require.NoError(t, err)
	assert.Equal(t, 100, snap.UsedPercent)
	assert.LessOrEqual(t, snap.UsedPercent, 100)
	assert.GreaterOrEqual(t, snap.UsedPercent, 0)
}

func TestParsePressure(t *testing.T) {
	tests := []struct {
		name     string
		out      string
		want     types.PressureLevel
		wantFree int
	}{
		{
			name:     "normal status",
			out:      "The system has memory pressure status: Normal\nSystem-wide memory free percentage: 44%\n",
			want:     types.PressureNormal,
			wantFree: 44,
		},
		{
			name:     "warning status",
			out:      "Current memory pressure status: Warn\nSystem-wide memory free percentage: 9%\n",
			want:     types.PressureWarning,
			wantFree: 9,
		},
		{
			name:     "critical status",
			out:      "Current memory pressure status: Critical\nSystem-wide memory free percentage: 2%\n",
			want:     types.PressureCritical,
			wantFree: 2,
		},
		{
			name:     "no status text falls back to critical threshold",
			out:      "Stats:\nSystem-wide memory free percentage: 4%\n",
			want:     types.PressureCritical,
			wantFree: 4,
		},
		{
			name:     "no status text falls back to warning threshold",
			out:      "Stats:\nSystem-wide memory free percentage: 8%\n",
			want:     types.PressureWarning,
			wantFree: 8,
		},
		{
			name:     "no status text falls back to normal",
			out:      "Stats:\nSystem-wide memory free percentage: 61%\n",
			want:     types.PressureNormal,
			wantFree: 61,
		},
		{
			name:     "garbage yields unknown",
			out:      "command not found\n",
			want:     types.PressureUnknown,
			wantFree: -1,
		},
		{
			name:     "empty yields unknown",
			out:      "",
			want:     types.PressureUnknown,
			wantFree: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := snapshot.ParsePressure([]byte(tt.out))
			assert.Equal(t, tt.want, reading.Level)
			assert.Equal(t, tt.wantFree, reading.FreePercent)
		})
	}
}

func TestParsePressure_RawStatusPreserved(t *testing.T) {
	out := []byte("The system has memory pressure status: Normal\n")
	reading := snapshot.ParsePressure(out)
	assert.Equal(t, "The system has memory pressure status: Normal", reading.RawStatus)
}

func TestParsePmsetBattery(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want types.BatteryInfo
	}{
		{
			name: "discharging laptop",
			out: "Now drawing from 'Battery Power'\n" +
				" -InternalBattery-0 (id=4522083)\t95%; discharging; 4:33 remaining present: true\n",
			want: types.BatteryInfo{
				Present:       true,
				Percent:       95,
				State:         "discharging",
				TimeRemaining: "4:33",
				Source:        "Battery Power",
			},
		},
		{
			name: "charged on AC",
			out: "Now drawing from 'AC Power'\n" +
				" -InternalBattery-0 (id=4522083)\t100%; charged; 0:00 remaining present: true\n",
			want: types.BatteryInfo{
				Present:       true,
				Percent:       100,
				State:         "charged",
				TimeRemaining: "0:00",
				Source:        "AC Power",
			},
		},
		{
			name: "charging without estimate",
			out: "Now drawing from 'AC Power'\n" +
				" -InternalBattery-0 (id=4522083)\t64%; charging; (no estimate) present: true\n",
			want: types.BatteryInfo{
				Present: true,
				Percent: 64,
				State:   "charging",
				Source:  "AC Power",
			},
		},
		{
			name: "desktop without battery",
			out:  "Now drawing from 'AC Power'\n",
			want: types.BatteryInfo{
				Source: "AC Power",
			},
		},
		{
			name: "garbage",
			out:  "pmset: unrecognized\n",
			want: types.BatteryInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshot.ParsePmsetBattery([]byte(tt.out))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePowerProfile(t *testing.T) {
	out := []byte(`Power:

    Battery Information:

      Charge Information:
          Fully Charged: No
          Charging: No
          State of Charge (%): 95
      Health Information:
          Cycle Count: 210
          Condition: Normal
`)

	health, cycles := snapshot.ParsePowerProfile(out)
	assert.Equal(t, "Normal", health)
	assert.Equal(t, 210, cycles)
}

func TestParsePowerProfile_Missing(t *testing.T) {
	health, cycles := snapshot.ParsePowerProfile([]byte("Power:\n"))
	assert.Empty(t, health)
	assert.Zero(t, cycles)
}

func TestParseHardwarePorts(t *testing.T) {
	out := []byte(`Hardware Port: Wi-Fi
Device: en0
Ethernet Address: aa:bb:cc:dd:ee:ff

Hardware Port: Thunderbolt Bridge
Device: bridge0
Ethernet Address: 11:22:33:44:55:66

VLAN Configurations
===================
`)

	ports := snapshot.ParseHardwarePorts(out)
	require.Len(t, ports, 2)
	assert.Equal(t, types.NetworkPort{Name: "Wi-Fi", Device: "en0"}, ports[0])
	assert.Equal(t, types.NetworkPort{Name: "Thunderbolt Bridge", Device: "bridge0"}, ports[1])
}

func TestParseHardwarePorts_Empty(t *testing.T) {
	assert.Nil(t, snapshot.ParseHardwarePorts(nil))
}

func TestReadMemorySnapshot(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"vm_stat": []byte(vmStatFixture),
			"sysctl":  []byte("17179869184\n"),
		},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	snap := reader.ReadMemorySnapshot(context.Background())

	assert.Equal(t, sixteenGiB, snap.Total)
	assert.Equal(t, uint64(7194345472), snap.Free)
	assert.Equal(t, 82, snap.UsedPercent)
	assert.Contains(t, runner.calls, "vm_stat")
	assert.Contains(t, runner.calls, "sysctl")
}

func TestReadMemorySnapshot_DegradesOnFailure(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{"vm_stat": errors.New("exec: not found")},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	snap := reader.ReadMemorySnapshot(context.Background())

	assert.Equal(t, types.ResourceSnapshot{}, snap, "failure degrades to a zeroed snapshot")
}

func TestReadPressure_DegradesOnFailure(t *testing.T) {
	runner := &fakeRunner{
		errs: map[string]error{"memory_pressure": errors.New("exec: not found")},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	reading := reader.ReadPressure(context.Background())

	assert.Equal(t, types.PressureUnknown, reading.Level)
	assert.Equal(t, -1, reading.FreePercent)
}

func TestBattery_ProfilerFailureKeepsPmsetFields(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"pmset": []byte("Now drawing from 'Battery Power'\n" +
				" -InternalBattery-0 (id=1)\t80%; discharging; 3:10 remaining present: true\n"),
		},
		errs: map[string]error{"system_profiler": errors.New("timeout")},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	info := reader.Battery(context.Background())

	assert.True(t, info.Present)
	assert.Equal(t, 80, info.Percent)
	assert.Empty(t, info.Health)
	assert.Zero(t, info.CycleCount)
}

func TestBattery_SkipsProfilerWithoutBattery(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"pmset": []byte("Now drawing from 'AC Power'\n"),
		},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	info := reader.Battery(context.Background())

	assert.False(t, info.Present)
	assert.NotContains(t, runner.calls, "system_profiler")
}

func TestReading_PairsSnapshotAndPressure(t *testing.T) {
	runner := &fakeRunner{
		outputs: map[string][]byte{
			"vm_stat":         []byte(vmStatFixture),
			"sysctl":          []byte("17179869184\n"),
			"memory_pressure": []byte("Current memory pressure status: Normal\nSystem-wide memory free percentage: 42%\n"),
		},
	}
	reader := snapshot.NewReaderWithRunner(runner)

	reading := reader.Reading(context.Background())

	assert.False(t, reading.TakenAt.IsZero())
	assert.Equal(t, 82, reading.Snapshot.UsedPercent)
	assert.Equal(t, types.PressureNormal, reading.Pressure.Level)
	assert.Equal(t, 42, reading.Pressure.FreePercent)
}
