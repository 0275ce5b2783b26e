package entitlement

import "portal/internal/app/ds"

const spfRecord = "v=spf1 mx ~all"

// defaultDNSRecords is the starter zone for a newly registered domain. The A
// record is only written when a default address is configured.
func (s *Service) defaultDNSRecords(serviceID uint, domain string) []ds.DnsRecord {
	mx := s.cfg.DefaultMX
	if mx == "" {
		mx = "mail." + domain
	}
	priority := 10

	records := make([]ds.DnsRecord, 0, 4)
	if s.cfg.DefaultARecord != "" {
		records = append(records, ds.DnsRecord{Type: "A", Host: "@", Value: s.cfg.DefaultARecord})
	}
	records = append(records,
		ds.DnsRecord{Type: "CNAME", Host: "www", Value: domain},
		ds.DnsRecord{Type: "MX", Host: "@", Value: mx, Priority: &priority},
		ds.DnsRecord{Type: "TXT", Host: "@", Value: spfRecord},
	)
	for i := range records {
		records[i].ClientServiceID = serviceID
		records[i].DomainName = domain
		records[i].TTL = 3600
	}
	return records
}
