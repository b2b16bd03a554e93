// Package services maps TCP port numbers to conventional service names.
//
// The table is static and covers the ports people
// usually care about, using IANA/netbase names. Anything else is reported
// as Unknown.
package services

import (
	"slices"
)

// Unknown is returned for ports absent from the table.
const Unknown = "unknown"

// Entry is a single well-known port mapping.
type Entry struct {
	Port uint16
	Name string
}

var wellKnown = map[uint16]string{
	7:     "echo",
	20:    "ftp-data",
	21:    "ftp",
	22:    "ssh",
	23:    "telnet",
	25:    "smtp",
	53:    "domain",
	67:    "bootps",
	69:    "tftp",
	80:    "http",
	88:    "kerberos",
	110:   "pop3",
	111:   "sunrpc",
	119:   "nntp",
	123:   "ntp",
	135:   "epmap",
	137:   "netbios-ns",
	139:   "netbios-ssn",
	143:   "imap2",
	161:   "snmp",
	179:   "bgp",
	389:   "ldap",
	443:   "https",
	445:   "microsoft-ds",
	465:   "submissions",
	514:   "shell",
	587:   "submission",
	631:   "ipp",
	636:   "ldaps",
	873:   "rsync",
	993:   "imaps",
	995:   "pop3s",
	1433:  "ms-sql-s",
	1723:  "pptp",
	1883:  "mqtt",
	2049:  "nfs",
	3306:  "mysql",
	3389:  "ms-wbt-server",
	5060:  "sip",
	5432:  "postgresql",
	5672:  "amqp",
	5900:  "vnc",
	6379:  "redis",
	8080:  "http-alt",
	8443:  "https-alt",
	27017: "mongodb",
}

// topPorts are the common ports probed by --top-ports, in ascending order.
var topPorts = []uint16{
	21, 22, 23, 25, 53, 80, 110, 111, 135, 139,
	143, 443, 445, 993, 995, 1723, 3306, 3389, 5900, 8080,
}

// Lookup returns the service name for port, or Unknown.
func Lookup(port uint16) string {
	if name, ok := wellKnown[port]; ok {
		return name
	}
	return Unknown
}

// Known reports whether port has a table entry.
func Known(port uint16) bool {
	_, ok := wellKnown[port]
	return ok
}

// TopPorts returns a copy of the common port list.
func TopPorts() []uint16 {
	return slices.Clone(topPorts)
}

// Entries returns the whole table sorted by port.
func Entries() []Entry {
	entries := make([]Entry, 0, len(wellKnown))
	for port, name := range wellKnown {
		entries = append(entries, Entry{Port: port, Name: name})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return int(a.Port) - int(b.Port)
	})
	return entries
}
