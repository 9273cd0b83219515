package scanner

import "strings"

// ouiVendors maps the first three MAC octets to a vendor name. This is a
// deliberately small table covering the devices commonly seen on home
// networks; unknown prefixes resolve to "Unknown".
var ouiVendors = map[string]string{
	"3c:5a:b4": "Google",
	"f4:f5:d8": "Google",
	"da:a1:19": "Google",
	"ac:37:43": "HTC",
	"28:6c:07": "Xiaomi",
	"64:09:80": "Xiaomi",
	"f8:a4:5f": "Xiaomi",
	"c8:3a:35": "Tenda",
	"00:1a:11": "Google",
	"00:17:88": "Philips",
	"b8:27:eb": "Raspberry Pi",
	"dc:a6:32": "Raspberry Pi",
	"e4:5f:01": "Raspberry Pi",
	"28:16:ad": "Intel",
	"3c:e9:f7": "Intel",
	"a4:bf:01": "Intel",
	"f0:18:98": "Apple",
	"a8:5c:2c": "Apple",
	"f4:5c:89": "Apple",
	"d0:03:4b": "Apple",
	"bc:d0:74": "Apple",
	"5c:49:7d": "Samsung",
	"8c:77:12": "Samsung",
	"e8:50:8b": "Samsung",
	"fc:a1:3e": "Samsung",
	"78:bd:bc": "Samsung",
	"cc:6e:a4": "Samsung",
	"00:e0:91": "LG",
	"10:68:3f": "LG",
	"64:bc:0c": "LG",
	"cc:2d:8c": "LG Electronics",
	"a0:d3:7a": "Intel",
	"08:00:27": "PCS Systemtechnik",
	"3c:d9:2b": "HP",
	"94:57:a5": "HP",
	"00:1e:0b": "HP",
	"18:60:24": "HP",
	"00:21:cc": "Flextronics",
	"70:85:c2": "ASRock",
	"d8:cb:8a": "Micro-Star",
	"54:bf:64": "Dell",
	"18:db:f2": "Dell",
	"f8:bc:12": "Dell",
	"98:90:96": "Dell",
	"00:23:24": "G-PRO",
	"8c:16:45": "Lenovo",
	"50:7b:9d": "Lenovo",
	"e8:6a:64": "Lenovo",
	"ec:8e:b5": "Hewlett Packard",
	"b0:4e:26": "TP-Link",
	"50:c7:bf": "TP-Link",
	"60:32:b1": "TP-Link",
	"00:31:92": "TP-Link",
	"9c:a2:f4": "TP-Link",
	"e0:28:6d": "AzureWave",
	"74:da:38": "Edimax",
	"d8:3a:dd": "Raspberry Pi",
	"00:0c:29": "VMware",
	"00:50:56": "VMware",
	"52:54:00": "QEMU",
	"2c:f0:5d": "Micro-Star",
	"b4:2e:99": "Giga-Byte",
	"1c:1b:0d": "Giga-Byte",
	"90:09:d0": "Synology",
	"00:11:32": "Synology",
	"28:c6:8e": "Netgear",
	"9c:3d:cf": "Netgear",
	"a0:40:a0": "Netgear",
	"b0:7f:b9": "Netgear",
	"00:24:e4": "Withings",
	"ec:fa:bc": "Espressif",
	"24:0a:c4": "Espressif",
	"30:ae:a4": "Espressif",
	"a4:cf:12": "Espressif",
	"84:cc:a8": "Espressif",
	"44:65:0d": "Amazon",
	"fc:a6:67": "Amazon",
	"0c:47:c9": "Amazon",
	"74:c2:46": "Amazon",
	"18:b4:30": "Nest Labs",
	"64:16:66": "Nest Labs",
	"00:04:4b": "Nvidia",
	"48:b0:2d": "Nvidia",
	"00:04:20": "Slim Devices",
	"58:ef:68": "Belkin",
	"94:10:3e": "Belkin",
	"c0:56:27": "Belkin",
	"60:38:e0": "Belkin",
	"b0:be:76": "Tenda",
	"d8:47:32": "TP-Link",
	"78:8a:20": "Ubiquiti",
	"f0:9f:c2": "Ubiquiti",
	"24:a4:3c": "Ubiquiti",
	"80:2a:a8": "Ubiquiti",
	"fc:ec:da": "Ubiquiti",
	"68:d7:9a": "Ubiquiti",
	"00:1d:d8": "Microsoft",
	"28:18:78": "Microsoft",
	"58:82:a8": "Microsoft",
	"98:5f:d3": "Microsoft",
	"30:59:b7": "Microsoft",
	"7c:1e:52": "Microsoft",
	"00:50:f2": "Microsoft",
	"60:45:bd": "Microsoft",
	"0c:37:96": "Sony",
	"00:13:a9": "Sony",
	"54:42:49": "Sony",
	"fc:0f:e6": "Sony",
	"78:c8:81": "Sagemcom",
	"34:2c:c4": "Sagemcom",
	"40:f2:01": "Sagemcom",
	"88:71:b1": "ARRIS",
	"94:87:7c": "ARRIS",
	"fc:51:a4": "ARRIS",
	"00:1f:c6": "ASUSTek",
	"50:46:5d": "ASUSTek",
	"ac:9e:17": "ASUSTek",
	"04:d9:f5": "ASUSTek",
	"70:4d:7b": "ASUSTek",
	"2c:fd:a1": "ASUSTek",
	"bc:ee:7b": "ASUSTek",
	"08:62:66": "ASUSTek",
	"38:d5:47": "ASUSTek",
	"90:e6:ba": "ASUSTek",
	"e0:3f:49": "ASUSTek",
	"14:dd:a9": "ASUSTek",
	"ac:22:0b": "ASUSTek",
	"10:c3:7b": "ASUSTek",
	"f0:79:59": "ASUSTek",
	"1c:87:2c": "ASUSTek",
	"d4:5d:64": "ASUSTek",
	"30:5a:3a": "ASUSTek",
	"88:d7:f6": "ASUSTek",
	"a8:5e:45": "ASUSTek",
	"f8:32:e4": "ASUSTek",
	"60:cf:84": "Huawei",
	"ec:23:3d": "Huawei",
	"48:46:fb": "Huawei",
	"ac:e2:15": "Huawei",
	"04:bd:70": "Huawei",
	"00:66:4b": "Huawei",
	"20:f3:a3": "Huawei",
	"84:a8:e4": "Huawei",
	"88:53:d4": "Huawei",
	"b4:cd:27": "Huawei",
	"08:19:a6": "Huawei",
	"80:d0:9b": "Hikvision",
	"44:19:b6": "Hikvision",
	"bc:ad:28": "Hangzhou Hikvision",
}

// unknownVendor is the value returned when a MAC prefix is not recognized.
const unknownVendor = "Unknown"

// LookupVendor resolves a vendor name from the OUI (first three octets) of
// a MAC address. It never fails: unrecognized or malformed MACs yield
// "Unknown"; vendor resolution is best-effort enrichment only.
func LookupVendor(mac string) string {
	mac = strings.ToLower(strings.TrimSpace(mac))
	if len(mac) < 8 {
		return unknownVendor
	}
	if v, ok := ouiVendors[mac[:8]]; ok {
		return v
	}
	return unknownVendor
}
