// Package discovery finds Belkin WeMo devices on the local network.
//
// Discovery is a three step pipeline:
//  1. Scan: a Scanner broadcasts an SSDP M-SEARCH (or browses mDNS, or probes
//     known hosts) and returns one Entry per responding device, each carrying
//     the device's description location and parsed description
//  2. Filter & fetch: entries whose description is not from Belkin (and,
//     optionally, not the requested MAC address) are dropped; the description
//     of every survivor is fetched over HTTP with a 10 second timeout
//  3. Classify: the UDN of the fetched description selects the device kind
//
// # Error Policy
//
// Only a failure of the scan itself is returned to the caller. Any failure
// while fetching, parsing or classifying a single candidate drops that
// candidate and discovery continues with the next one; a single misbehaving
// device never hides the others. Skipped candidates are logged at debug level.
//
// # Usage Example
//
//	devices, err := discovery.DiscoverDevices(ctx, discovery.Options{
//	    MaxDevices: 1,
//	    MatchMAC:   "AABBCCDDEEFF",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, device := range devices {
//	    fmt.Println(device)
//	}
//
// # Network Requirements
//
// - SSDP uses UDP multicast to 239.255.255.250:1900
// - mDNS uses UDP multicast on port 5353
// - Devices must be on the same local network segment
//
// # Substituting Collaborators
//
// Scanner, Fetcher and Parser are narrow interfaces so a simulated network can
// replace the real one in tests without touching the pipeline.
package discovery
