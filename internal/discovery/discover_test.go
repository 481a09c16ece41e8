package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muurk/wemo/internal/wemo"
)

const (
	switchLocation = "http://10.0.0.5:49153/setup.xml"
	switchUDN      = "uuid:Socket-1_0-221636K0101A2"
	switchMAC      = "AABBCCDDEEFF"
)

// network is a simulated LAN: entries the scanner returns and the bodies the
// fetcher serves for them
type network struct {
	entries []*Entry
	fetcher *fakeFetcher
}

func newNetwork() *network {
	return &network{fetcher: newFakeFetcher()}
}

func (n *network) add(location, manufacturer, udn, mac string) {
	body := setupXML(manufacturer, udn, mac)
	n.entries = append(n.entries, entryFor(location, body))
	n.fetcher.bodies[location] = body
}

func (n *network) discoverer() *Discoverer {
	return &Discoverer{
		Scanner: staticScanner(n.entries...),
		Fetcher: n.fetcher,
		Parser:  DefaultParser,
	}
}

func TestDiscover_SingleBelkinSwitch(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, wemo.Manufacturer, switchUDN, switchMAC)

	devices, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, devices, 1)

	assert.Equal(t, wemo.KindSwitch, devices[0].Kind)
	assert.Equal(t, switchLocation, devices[0].Location)
	assert.Equal(t, switchMAC, devices[0].MAC)
	assert.Equal(t, switchUDN, devices[0].UDN)
}

func TestDiscover_OtherManufacturerExcluded(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, "Other Corp", switchUDN, switchMAC)

	devices, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.Zero(t, net.fetcher.callCount(), "filtered entries must not be fetched")
}

func TestDiscover_MatchMACExcludesOtherDevices(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, wemo.Manufacturer, switchUDN, switchMAC)

	devices, err := net.discoverer().Discover(context.Background(), Options{MatchMAC: "112233445566"})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDiscover_MatchMACSelectsDevice(t *testing.T) {
	net := newNetwork()
	net.add("http://10.0.0.5:49153/setup.xml", wemo.Manufacturer, "uuid:Socket-1_0-A", "AAAAAAAAAAAA")
	net.add("http://10.0.0.6:49153/setup.xml", wemo.Manufacturer, "uuid:Insight-1_0-B", "112233445566")
	net.add("http://10.0.0.7:49153/setup.xml", wemo.Manufacturer, "uuid:Maker-1_0-C", "CCCCCCCCCCCC")

	devices, err := net.discoverer().Discover(context.Background(), Options{MatchMAC: "112233445566"})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, wemo.KindInsight, devices[0].Kind)
	assert.Equal(t, "112233445566", devices[0].MAC)
}

func TestDiscover_ManufacturerFilterIgnoresMatchMAC(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, "Other Corp", switchUDN, switchMAC)

	devices, err := net.discoverer().Discover(context.Background(), Options{MatchMAC: switchMAC})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestDiscover_AllKinds(t *testing.T) {
	net := newNetwork()
	udns := []string{
		"uuid:Socket-1_0-1",
		"uuid:Lightswitch-1_0-2",
		"uuid:Insight-1_0-3",
		"uuid:Sensor-1_0-4",
		"uuid:Maker-1_0-5",
		"uuid:Bridge-1_0-6",
		"uuid:Unknown-1",
	}
	for i, udn := range udns {
		net.add(fmt.Sprintf("http://10.0.0.%d:49153/setup.xml", i+10), wemo.Manufacturer, udn, fmt.Sprintf("00000000000%d", i))
	}

	devices, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, devices, 6, "unknown UDN must be filtered out")

	want := []wemo.Kind{
		wemo.KindSwitch, wemo.KindLightSwitch, wemo.KindInsight,
		wemo.KindMotion, wemo.KindMaker, wemo.KindBridge,
	}
	for i, kind := range want {
		assert.Equal(t, kind, devices[i].Kind, "device %d", i)
	}
}

func TestDiscover_MaxDevicesStopsEarly(t *testing.T) {
	net := newNetwork()
	for i := 0; i < 5; i++ {
		net.add(fmt.Sprintf("http://10.0.0.%d:49153/setup.xml", i+1), wemo.Manufacturer,
			fmt.Sprintf("uuid:Socket-1_0-%d", i), fmt.Sprintf("00000000000%d", i))
	}

	devices, err := net.discoverer().Discover(context.Background(), Options{MaxDevices: 2})
	require.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, 2, net.fetcher.callCount(), "no fetches beyond the second device")
	assert.Equal(t, "http://10.0.0.1:49153/setup.xml", devices[0].Location)
	assert.Equal(t, "http://10.0.0.2:49153/setup.xml", devices[1].Location)
}

func TestDiscover_MaxDevicesCountsOnlyClassified(t *testing.T) {
	net := newNetwork()
	net.add("http://10.0.0.1:49153/setup.xml", wemo.Manufacturer, "uuid:Unknown-1", "000000000001")
	net.add("http://10.0.0.2:49153/setup.xml", wemo.Manufacturer, "uuid:Socket-1_0-2", "000000000002")
	net.add("http://10.0.0.3:49153/setup.xml", wemo.Manufacturer, "uuid:Socket-1_0-3", "000000000003")

	devices, err := net.discoverer().Discover(context.Background(), Options{MaxDevices: 1})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "http://10.0.0.2:49153/setup.xml", devices[0].Location)
	assert.Equal(t, 2, net.fetcher.callCount())
}

func TestDiscover_FailedCandidateDoesNotAffectOthers(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(net *network, location string)
	}{
		{
			name: "timeout",
			corrupt: func(net *network, location string) {
				net.fetcher.errs[location] = &FetchError{Type: ErrTypeTimeout, Message: "request timed out", URL: location}
			},
		},
		{
			name: "malformed xml",
			corrupt: func(net *network, location string) {
				net.fetcher.bodies[location] = "<root><device><UDN>uuid:Socket"
			},
		},
		{
			name: "missing udn",
			corrupt: func(net *network, location string) {
				net.fetcher.bodies[location] = "<root><device><macAddress>x</macAddress></device></root>"
			},
		},
		{
			name: "http error",
			corrupt: func(net *network, location string) {
				delete(net.fetcher.bodies, location)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net := newNetwork()
			net.add("http://10.0.0.1:49153/setup.xml", wemo.Manufacturer, "uuid:Socket-1_0-1", "000000000001")
			net.add("http://10.0.0.2:49153/setup.xml", wemo.Manufacturer, "uuid:Insight-1_0-2", "000000000002")
			net.add("http://10.0.0.3:49153/setup.xml", wemo.Manufacturer, "uuid:Maker-1_0-3", "000000000003")
			tt.corrupt(net, "http://10.0.0.2:49153/setup.xml")

			devices, err := net.discoverer().Discover(context.Background(), Options{})
			require.NoError(t, err)
			require.Len(t, devices, 2)
			assert.Equal(t, "http://10.0.0.1:49153/setup.xml", devices[0].Location)
			assert.Equal(t, "http://10.0.0.3:49153/setup.xml", devices[1].Location)
		})
	}
}

func TestDiscover_EntryWithoutDescriptionSkipped(t *testing.T) {
	net := newNetwork()
	net.entries = append(net.entries, &Entry{Location: "http://10.0.0.9:49153/setup.xml"})
	net.add(switchLocation, wemo.Manufacturer, switchUDN, switchMAC)

	devices, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, switchLocation, devices[0].Location)
}

func TestDiscover_ScanFailurePropagates(t *testing.T) {
	scanErr := errors.New("no multicast route")
	d := &Discoverer{
		Scanner: ScannerFunc(func(context.Context, string) ([]*Entry, error) {
			return nil, scanErr
		}),
		Fetcher: newFakeFetcher(),
		Parser:  DefaultParser,
	}

	devices, err := d.Discover(context.Background(), Options{})
	assert.ErrorIs(t, err, scanErr)
	assert.Nil(t, devices)
}

func TestDiscover_EmptyNetworkReturnsEmptyList(t *testing.T) {
	devices, err := newNetwork().discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Empty(t, devices)
}

func TestDiscover_SearchTarget(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"default", Options{}, DefaultSearchTarget},
		{"explicit", Options{SearchTarget: "urn:Belkin:service:basicevent:1"}, "urn:Belkin:service:basicevent:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			d := &Discoverer{
				Scanner: ScannerFunc(func(_ context.Context, st string) ([]*Entry, error) {
					got = st
					return nil, nil
				}),
				Fetcher: newFakeFetcher(),
				Parser:  DefaultParser,
			}
			_, err := d.Discover(context.Background(), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiscover_Idempotent(t *testing.T) {
	net := newNetwork()
	net.add("http://10.0.0.1:49153/setup.xml", wemo.Manufacturer, "uuid:Sensor-1_0-1", "000000000001")
	net.add("http://10.0.0.2:49153/setup.xml", wemo.Manufacturer, "uuid:Bridge-1_0-2", "000000000002")

	first, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)
	second, err := net.discoverer().Discover(context.Background(), Options{})
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Kind, second[i].Kind)
		assert.Equal(t, first[i].Location, second[i].Location)
		assert.Equal(t, first[i].MAC, second[i].MAC)
	}
}

func TestDiscover_NilEntrySkipped(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, wemo.Manufacturer, switchUDN, switchMAC)

	d := net.discoverer()
	d.Scanner = staticScanner(nil, net.entries[0], nil)

	devices, err := d.Discover(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, switchLocation, devices[0].Location)
}

func TestEntry_LoadDescriptionOnce(t *testing.T) {
	calls := 0
	entry := newLazyEntry(switchLocation, func() (*wemo.Description, error) {
		calls++
		return wemo.ParseDescription([]byte(setupXML(wemo.Manufacturer, switchUDN, switchMAC)))
	})

	assert.Zero(t, calls)
	assert.True(t, entry.MatchDescription(DescriptionFilter(switchMAC)))
	assert.Equal(t, switchMAC, entry.MAC())
	assert.NotNil(t, entry.LoadDescription())
	assert.Equal(t, 1, calls)
}

func TestDiscover_CancelledContext(t *testing.T) {
	net := newNetwork()
	net.add(switchLocation, wemo.Manufacturer, switchUDN, switchMAC)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	devices, err := net.discoverer().Discover(ctx, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, devices)
	assert.Zero(t, net.fetcher.callCount())
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

func TestResolve(t *testing.T) {
	fetcher := new(mockFetcher)
	fetcher.On("Fetch", mock.Anything, switchLocation).
		Return([]byte(setupXML(wemo.Manufacturer, switchUDN, switchMAC)), nil).Once()
	fetcher.On("Fetch", mock.Anything, "http://10.0.0.8:49153/setup.xml").
		Return([]byte(setupXML(wemo.Manufacturer, "uuid:Toaster-1", switchMAC)), nil).Once()

	d := &Discoverer{Fetcher: fetcher, Parser: DefaultParser}

	device, err := d.Resolve(context.Background(), switchLocation, switchMAC)
	require.NoError(t, err)
	assert.Equal(t, wemo.KindSwitch, device.Kind)
	assert.Equal(t, "Test Device", device.FriendlyName)

	_, err = d.Resolve(context.Background(), "http://10.0.0.8:49153/setup.xml", switchMAC)
	assert.ErrorIs(t, err, ErrUnrecognizedDevice)

	fetcher.AssertExpectations(t)
}

func TestDescriptionFilter(t *testing.T) {
	assert.Equal(t, map[string]string{"manufacturer": "Belkin International Inc."}, DescriptionFilter(""))
	assert.Equal(t, map[string]string{
		"manufacturer": "Belkin International Inc.",
		"macAddress":   "AABBCCDDEEFF",
	}, DescriptionFilter("AABBCCDDEEFF"))
}
