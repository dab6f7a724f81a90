package catalog

import contractx "github.com/pattarawat/docassist/agent/contract"

// Seeded returns the demo corpus of invoices, contracts, and claims.
func Seeded() *MemoryCatalog {
	return NewMemoryCatalog(
		contractx.Document{
			ID:      "INV-001",
			Title:   "Invoice - Acme Corporation",
			Type:    "invoice",
			Content: "Invoice INV-001 issued to Acme Corporation on 2024-01-15. Line items: consulting services $850.00, software license $384.56. Total amount due: $1234.56. Payment terms: net 30.",
			Metadata: map[string]string{
				"total":    "1234.56",
				"currency": "USD",
				"customer": "Acme Corporation",
				"date":     "2024-01-15",
			},
		},
		contractx.Document{
			ID:      "INV-002",
			Title:   "Invoice - Globex Industries",
			Type:    "invoice",
			Content: "Invoice INV-002 issued to Globex Industries on 2024-02-03. Line items: hardware maintenance $2100.00, support retainer $678.90. Total amount due: $2778.90. Payment terms: net 45.",
			Metadata: map[string]string{
				"total":    "2778.90",
				"currency": "USD",
				"customer": "Globex Industries",
				"date":     "2024-02-03",
			},
		},
		contractx.Document{
			ID:      "CON-001",
			Title:   "Service Agreement - Acme Corporation",
			Type:    "contract",
			Content: "Service agreement CON-001 between the provider and Acme Corporation, effective 2024-01-01 through 2024-12-31. Scope: managed IT services, monthly fee $5000.00, termination requires 60 days written notice. Liability capped at annual contract value.",
			Metadata: map[string]string{
				"total":    "60000.00",
				"currency": "USD",
				"party":    "Acme Corporation",
				"expires":  "2024-12-31",
			},
		},
		contractx.Document{
			ID:      "CON-002",
			Title:   "Supply Contract - Initech LLC",
			Type:    "contract",
			Content: "Supply contract CON-002 with Initech LLC, effective 2024-03-01 for 24 months. Deliverables: quarterly hardware shipments, unit price $120.00, minimum volume 500 units per quarter. Late delivery penalty: 2% per week.",
			Metadata: map[string]string{
				"total":    "240000.00",
				"currency": "USD",
				"party":    "Initech LLC",
				"expires":  "2026-02-28",
			},
		},
		contractx.Document{
			ID:      "CLM-001",
			Title:   "Insurance Claim - Water Damage",
			Type:    "claim",
			Content: "Insurance claim CLM-001 filed 2024-04-10 for water damage to server room equipment. Assessed damage: $15750.00. Deductible: $2500.00. Status: under review by adjuster. Expected settlement: $13250.00.",
			Metadata: map[string]string{
				"total":    "13250.00",
				"currency": "USD",
				"status":   "under_review",
				"filed":    "2024-04-10",
			},
		},
	)
}
