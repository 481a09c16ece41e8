package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/wemo/internal/wemo"
)

func TestGetConfigDir(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "wemo") {
		t.Errorf("GetConfigDir() = %v, should contain 'wemo'", configDir)
	}

	switch runtime.GOOS {
	case "linux":
		if configDir != filepath.Join("/tmp/xdg-test", "wemo") {
			t.Errorf("GetConfigDir() = %v, want XDG_CONFIG_HOME/wemo", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}

	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}
	if reg.Preferences == nil {
		t.Fatal("NewRegistry().Preferences should not be nil")
	}
	if reg.Preferences.Method != MethodSSDP {
		t.Errorf("Preferences.Method = %v, want %v", reg.Preferences.Method, MethodSSDP)
	}
	if reg.Preferences.ScanTimeout != 5 {
		t.Errorf("Preferences.ScanTimeout = %v, want 5", reg.Preferences.ScanTimeout)
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	device1 := reg.EnsureDevice("AABBCCDDEEFF")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}

	if device2 := reg.EnsureDevice("AABBCCDDEEFF"); device1 != device2 {
		t.Error("EnsureDevice() should return same instance for same MAC")
	}

	if device3 := reg.EnsureDevice("112233445566"); device1 == device3 {
		t.Error("EnsureDevice() should create new instance for different MAC")
	}

	var empty Registry
	if empty.EnsureDevice("AABBCCDDEEFF") == nil {
		t.Error("EnsureDevice() should initialize a nil device map")
	}
}

func TestRegistryRecordDevice(t *testing.T) {
	reg := NewRegistry()
	seen := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

	reg.RecordDevice(&wemo.Device{
		Kind:         wemo.KindInsight,
		Location:     "http://10.0.0.5:49153/setup.xml",
		MAC:          "AABBCCDDEEFF",
		UDN:          "uuid:Insight-1_0-231440K1200F4E",
		FriendlyName: "Dryer",
		DiscoveredAt: seen,
	})

	device := reg.GetDevice("AABBCCDDEEFF")
	if device == nil {
		t.Fatal("Device should exist after RecordDevice()")
	}
	if device.Kind != wemo.KindInsight {
		t.Errorf("Kind = %v, want Insight", device.Kind)
	}
	if device.LastLocation != "http://10.0.0.5:49153/setup.xml" {
		t.Errorf("LastLocation = %v", device.LastLocation)
	}
	if !device.LastSeen.Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", device.LastSeen, seen)
	}
	if device.FriendlyName != "Dryer" {
		t.Errorf("FriendlyName = %v, want Dryer", device.FriendlyName)
	}

	// Ignored: no MAC to key on
	reg.RecordDevice(&wemo.Device{Kind: wemo.KindSwitch})
	reg.RecordDevice(nil)
	if len(reg.Devices) != 1 {
		t.Errorf("len(Devices) = %d, want 1", len(reg.Devices))
	}
}

func TestRegistryRecordDevice_KeepsNickname(t *testing.T) {
	reg := NewRegistry()
	reg.SetDeviceNickname("AABBCCDDEEFF", "Kettle")

	reg.RecordDevice(&wemo.Device{Kind: wemo.KindSwitch, MAC: "AABBCCDDEEFF", Location: "http://10.0.0.5:49153/setup.xml"})

	device := reg.GetDevice("AABBCCDDEEFF")
	if device.Nickname != "Kettle" {
		t.Errorf("Nickname = %v, want Kettle", device.Nickname)
	}
	if device.LastSeen.IsZero() {
		t.Error("LastSeen should be set when the device has no discovery time")
	}
}

func TestRegistryKnownHosts(t *testing.T) {
	reg := NewRegistry()
	reg.EnsureDevice("A").LastLocation = "http://10.0.0.6:49153/setup.xml"
	reg.EnsureDevice("B").LastLocation = "http://10.0.0.5:49152/setup.xml"
	reg.EnsureDevice("C").LastLocation = "http://10.0.0.6:49153/setup.xml"
	reg.EnsureDevice("D")

	got := reg.KnownHosts()
	want := []string{"10.0.0.5:49152", "10.0.0.6:49153"}
	if len(got) != len(want) {
		t.Fatalf("KnownHosts() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("KnownHosts()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	reg := NewRegistry()
	reg.Preferences.MaxDevices = 3
	reg.Preferences.Method = MethodMDNS
	reg.SetDeviceNickname("AABBCCDDEEFF", "Porch Light")
	reg.RecordDevice(&wemo.Device{
		Kind:         wemo.KindLightSwitch,
		MAC:          "AABBCCDDEEFF",
		Location:     "http://10.0.0.5:49153/setup.xml",
		UDN:          "uuid:Lightswitch-1_0-1",
		DiscoveredAt: time.Now().UTC().Truncate(time.Second),
	})

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}

	loaded, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}

	device := loaded.GetDevice("AABBCCDDEEFF")
	if device == nil {
		t.Fatal("Device should exist in loaded registry")
	}
	if device.Nickname != "Porch Light" {
		t.Errorf("Loaded nickname = %v, want 'Porch Light'", device.Nickname)
	}
	if device.Kind != wemo.KindLightSwitch {
		t.Errorf("Loaded kind = %v, want LightSwitch", device.Kind)
	}
	if loaded.Preferences.MaxDevices != 3 || loaded.Preferences.Method != MethodMDNS {
		t.Errorf("Loaded preferences = %+v", loaded.Preferences)
	}
}

func TestLoadRegistryFrom_MissingFile(t *testing.T) {
	reg, err := LoadRegistryFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Version != 1 || reg.Preferences == nil {
		t.Errorf("missing file should yield a default registry, got %+v", reg)
	}
}

func TestLoadRegistryFrom_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad version", "version: 2\n"},
		{"bad yaml", "version: [\n"},
		{"bad kind", "version: 1\ndevices:\n  AABBCCDDEEFF:\n    kind: Toaster\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadRegistryFrom(path); err == nil {
				t.Error("LoadRegistryFrom() should fail")
			}
		})
	}
}

func TestLoadRegistryFrom_FillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFrom(path)
	if err != nil {
		t.Fatalf("LoadRegistryFrom() error = %v", err)
	}
	if reg.Devices == nil {
		t.Error("Devices should be initialized")
	}
	if reg.Preferences == nil || reg.Preferences.Method != MethodSSDP {
		t.Errorf("Preferences should default, got %+v", reg.Preferences)
	}
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("AABBCCDDEEFF")
	}
}
