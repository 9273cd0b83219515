package scanner

import (
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

const oidSysName = "1.3.6.1.2.1.1.5.0"

// QuerySysName asks a device for its SNMP sysName using the given
// community string. Routers, NAS boxes and printers commonly answer;
// everything else times out quickly. Returns "" when the device does not
// respond; like vendor lookup this is best-effort enrichment and never
// surfaces an error.
func QuerySysName(ip, community string, timeout time.Duration) string {
	client := &gosnmp.GoSNMP{
		Target:    ip,
		Port:      161,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   0,
	}
	if err := client.Connect(); err != nil {
		return ""
	}
	defer client.Conn.Close()

	res, err := client.Get([]string{oidSysName})
	if err != nil || len(res.Variables) == 0 {
		return ""
	}
	pdu := res.Variables[0]
	if pdu.Type != gosnmp.OctetString {
		return ""
	}
	b, ok := pdu.Value.([]byte)
	if !ok {
		return ""
	}
	return strings.TrimSpace(string(b))
}
