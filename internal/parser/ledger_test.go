package parser

import (
	"testing"

	"github.com/insightdelivered/upi-statement-analyzer/internal/models"
)

func TestParseLedger_MultiLine(t *testing.T) {
	p, _ := New(models.SourceCanara, false)
	out := p.ParseLines([]string{
		"Canara Bank",
		"Date Particulars Deposits Withdrawals Balance",
		"Opening Balance 50,000.00",
		"10-03-2024",
		"UPI/DR/407012/SWIGGY",
		"Food order",
		"2,500.00",
		"47,500.00",
		"11-03-2024 NEFT CR SALARY ACME 25,000.00 72,500.00",
		"12-03-2024",
		"ATM WDL MG ROAD",
		"1,000.00",
		"71,500.00",
		"13-03-2024",
		"INTEREST",
		"71,600.00",
		"Closing Balance 71,600.00",
	})

	txns := out.Transactions
	if len(txns) != 4 {
		t.Fatalf("got %d transactions, want 4: %+v", len(txns), txns)
	}

	tests := []struct {
		name        string
		got         models.RawTransaction
		date        string
		description string
		deposits    string
		withdrawals string
		balance     string
	}{
		{"keyword debit", txns[0], "10-03-2024", "UPI/DR/407012/SWIGGY\nFood order", "", "2,500.00", "47,500.00"},
		{"single line credit", txns[1], "11-03-2024", "NEFT CR SALARY ACME", "25,000.00", "", "72,500.00"},
		{"balance delta", txns[2], "12-03-2024", "ATM WDL MG ROAD", "", "1,000.00", "71,500.00"},
		{"lone number is balance", txns[3], "13-03-2024", "INTEREST", "", "", "71,600.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.got.Ledger {
				t.Error("expected ledger transaction")
			}
			if tt.got.Date != tt.date {
				t.Errorf("date: got %q, want %q", tt.got.Date, tt.date)
			}
			if tt.got.Description != tt.description {
				t.Errorf("description: got %q, want %q", tt.got.Description, tt.description)
			}
			if tt.got.Deposits != tt.deposits {
				t.Errorf("deposits: got %q, want %q", tt.got.Deposits, tt.deposits)
			}
			if tt.got.Withdrawals != tt.withdrawals {
				t.Errorf("withdrawals: got %q, want %q", tt.got.Withdrawals, tt.withdrawals)
			}
			if tt.got.Balance != tt.balance {
				t.Errorf("balance: got %q, want %q", tt.got.Balance, tt.balance)
			}
		})
	}
}

func TestParseLedger_ThreeColumns(t *testing.T) {
	p, _ := New(models.SourceCanara, false)
	out := p.ParseLines([]string{
		"10-03-2024 UPI-SWIGGY 0.00 2,500.00 47,500.00",
	})

	if len(out.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(out.Transactions))
	}
	got := out.Transactions[0]
	if got.Deposits != "0.00" || got.Withdrawals != "2,500.00" || got.Balance != "47,500.00" {
		t.Errorf("got deposits=%q withdrawals=%q balance=%q", got.Deposits, got.Withdrawals, got.Balance)
	}
	if got.Method != "ledger-single-line" {
		t.Errorf("method: got %q, want %q", got.Method, "ledger-single-line")
	}
}

func TestParseLedger_UnsignedPairIsWithdrawal(t *testing.T) {
	p, _ := New(models.SourceCanara, false)
	out := p.ParseLines([]string{
		"12-03-2024",
		"ATM WDL MG ROAD",
		"1,000.00",
		"71,500.00",
	})

	if len(out.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(out.Transactions))
	}
	got := out.Transactions[0]
	if got.Amount != "" {
		t.Errorf("amount: got %q, want it moved to a column", got.Amount)
	}
	if got.Deposits != "" || got.Withdrawals != "1,000.00" {
		t.Errorf("got deposits=%q withdrawals=%q, want withdrawals=%q", got.Deposits, got.Withdrawals, "1,000.00")
	}
}

func TestParseLedger_BalanceDeltaDeposit(t *testing.T) {
	p, _ := New(models.SourceCanara, false)
	out := p.ParseLines([]string{
		"Opening Balance 70,000.00",
		"31-03-2024",
		"SB INT",
		"1,000.00",
		"71,000.00",
	})

	if len(out.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(out.Transactions))
	}
	got := out.Transactions[0]
	if got.Deposits != "1,000.00" || got.Withdrawals != "" {
		t.Errorf("got deposits=%q withdrawals=%q, want deposits=%q", got.Deposits, got.Withdrawals, "1,000.00")
	}
}

func TestParseLedger_KeywordSigns(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		deposits    string
		withdrawals string
		balance     string
	}{
		{
			name:        "debit keyword with balance",
			lines:       []string{"10-03-2024", "DEBIT CARD PURCHASE BIGSHOP", "2,500.00", "47,500.00"},
			withdrawals: "2,500.00",
			balance:     "47,500.00",
		},
		{
			name:     "credit keyword lone number",
			lines:    []string{"10-03-2024", "NEFT CREDIT FROM ACME", "2,500.00"},
			deposits: "2,500.00",
		},
		{
			name:        "paid lone number",
			lines:       []string{"10-03-2024", "PAID TO ELECTRICITY BOARD", "2,500.00"},
			withdrawals: "2,500.00",
		},
		{
			name:     "received lone number",
			lines:    []string{"10-03-2024", "Received from Ravi", "800.00"},
			deposits: "800.00",
		},
		{
			name:        "transfer channel lone number",
			lines:       []string{"10-03-2024", "BY TRANSFER RTGS 88123", "5,000.00"},
			withdrawals: "5,000.00",
		},
		{
			name:    "no signal lone number",
			lines:   []string{"10-03-2024", "SB INT", "71,600.00"},
			balance: "71,600.00",
		},
		{
			name:     "particulars between numbers start a new pair",
			lines:    []string{"11-03-2024", "NEFT CR ACME", "99.00", "REF SALARY MARCH", "25,000.00", "72,500.00"},
			deposits: "25,000.00",
			balance:  "72,500.00",
		},
	}

	p, _ := New(models.SourceCanara, false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := p.ParseLines(tt.lines)
			if len(out.Transactions) != 1 {
				t.Fatalf("got %d transactions, want 1", len(out.Transactions))
			}
			got := out.Transactions[0]
			if got.Deposits != tt.deposits {
				t.Errorf("deposits: got %q, want %q", got.Deposits, tt.deposits)
			}
			if got.Withdrawals != tt.withdrawals {
				t.Errorf("withdrawals: got %q, want %q", got.Withdrawals, tt.withdrawals)
			}
			if got.Balance != tt.balance {
				t.Errorf("balance: got %q, want %q", got.Balance, tt.balance)
			}
		})
	}
}

func TestParseLedger_DateWithoutNumbers(t *testing.T) {
	p, _ := New(models.SourceCanara, true)
	out := p.ParseLines([]string{
		"10-03-2024",
		"Cheque returned",
		"11-03-2024",
	})

	if len(out.Transactions) != 0 {
		t.Errorf("got %d transactions, want 0", len(out.Transactions))
	}
	if len(out.Lines) != 3 {
		t.Errorf("got %d debug lines, want 3", len(out.Lines))
	}
}

func TestLedgerPolarity(t *testing.T) {
	tests := []struct {
		text string
		want models.Polarity
	}{
		{"UPI/CR/1234/RAVI", models.PolarityCredit},
		{"UPI/DR/1234/SWIGGY", models.PolarityDebit},
		{"Cash Deposit", models.PolarityCredit},
		{"ATM Withdrawal", models.PolarityDebit},
		{"Paid to Swiggy", models.PolarityDebit},
		{"DEBIT CARD PURCHASE", models.PolarityDebit},
		{"NEFT CREDIT FROM ACME", models.PolarityCredit},
		{"Received from Ravi", models.PolarityCredit},
		{"SB INT", models.PolarityUnknown},
	}
	for _, tt := range tests {
		if got := ledgerPolarity(tt.text); got != tt.want {
			t.Errorf("ledgerPolarity(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}
