package categorize

// Category labels.
const (
	FoodDining      = "Food & Dining"
	Groceries       = "Groceries"
	Shopping        = "Shopping"
	Transportation  = "Transportation"
	Entertainment   = "Entertainment"
	BillsUtilities  = "Bills & Utilities"
	EMILoans        = "EMI & Loans"
	HealthMedical   = "Health & Medical"
	Education       = "Education"
	Travel          = "Travel"
	PersonalCare    = "Personal Care"
	Transfer        = "Transfer"
	Investments     = "Investments"
	Insurance       = "Insurance"
	Rent            = "Rent"
	GiftsDonations  = "Gifts & Donations"
	TaxesFees       = "Taxes & Fees"
	Income          = "Income"
	Others          = "Others"
)

// rule is one taxonomy entry. Order in taxonomy is the tie-break: when a
// description carries keywords of several categories the earliest wins.
type rule struct {
	category string
	keywords []string
}

var taxonomy = []rule{
	{FoodDining, []string{
		"swiggy", "zomato", "dominos", "pizza", "food", "restaurant", "cafe", "coffee",
		"eatery", "kitchen", "dine", "dining", "meal", "lunch", "dinner", "breakfast",
		"dhaba", "eat", "hotel",
	}},
	{Groceries, []string{
		"grocery", "groceries", "supermarket", "kirana", "fruit", "vegetable", "food store",
		"bigbasket", "grofers", "blinkit", "zepto", "dmart", "mart",
	}},
	{Shopping, []string{
		"amazon", "flipkart", "myntra", "ajio", "meesho", "tatacliq", "nykaa", "shop",
		"store", "retail", "purchase", "buy", "mall", "bazaar", "market",
	}},
	{Transportation, []string{
		"uber", "ola", "rapido", "yulu", "metro", "irctc", "railway", "redbus", "bus",
		"train", "taxi", "cab", "auto", "rickshaw", "petrol", "diesel", "fuel", "fastag",
	}},
	{Entertainment, []string{
		"bookmyshow", "movie", "theatre", "netflix", "primevideo", "prime", "hotstar",
		"disney", "sony", "zee5", "jiocinema", "spotify", "subscription", "concert",
		"show", "ticket", "gaming", "game", "play", "sport",
	}},
	{BillsUtilities, []string{
		"electricity", "water", "gas", "internet", "mobile", "phone", "bill", "recharge",
		"dth", "broadband", "wifi", "utility", "jio", "airtel", "vodafone", "vi", "bsnl",
		"tata power", "adani", "bescom", "tangedco", "mahadiscom",
	}},
	{EMILoans, []string{
		"emi", "loan", "finance", "installment", "repayment", "mortgage",
	}},
	{HealthMedical, []string{
		"hospital", "clinic", "pharmacy", "medical", "doctor", "health", "medicine",
		"drug", "dental", "lab", "test",
	}},
	{Education, []string{
		"school", "college", "university", "course", "training", "class", "tuition",
		"education", "learning", "study", "institute", "book", "stationery",
	}},
	{Travel, []string{
		"makemytrip", "goibibo", "flight", "airline", "booking", "trip", "travel", "tour",
		"vacation", "holiday", "resort", "stay", "accommodation",
	}},
	{PersonalCare, []string{
		"salon", "spa", "beauty", "gym", "fitness", "parlour", "cosmetics", "grooming",
		"wellness",
	}},
	{Transfer, []string{
		"transfer", "sent", "received", "upi", "imps", "neft", "rtgs", "phonepe", "gpay",
		"paytm", "payment", "pay", "wallet", "deposit", "withdraw",
	}},
	{Investments, []string{
		"investment", "mutual fund", "sip", "stock", "share", "equity", "demat",
		"trading", "portfolio", "dividend", "interest",
	}},
	{Insurance, []string{
		"insurance", "policy", "premium", "coverage", "claim", "life", "vehicle",
	}},
	{Rent, []string{
		"rent", "lease", "housing", "property",
	}},
	{GiftsDonations, []string{
		"gift", "donation", "charity", "contribute", "present", "offering",
	}},
	{TaxesFees, []string{
		"tax", "gst", "fee", "charge", "penalty", "fine",
	}},
	{Income, []string{
		"salary", "interest earned", "refund", "cashback", "income", "stipend", "bonus",
	}},
	{Others, nil},
}

// Keywords that are also common fragments of longer words match only as
// whole words. Anything of three letters or fewer is treated the same way.
var wholeWords = map[string]bool{
	"pos": true, "rent": true, "sent": true, "fine": true, "life": true,
	"show": true, "play": true, "test": true, "stay": true, "mart": true,
}

func wholeWord(kw string) bool {
	return len(kw) <= 3 || wholeWords[kw]
}

// Categories returns the taxonomy labels in priority order.
func Categories() []string {
	out := make([]string, len(taxonomy))
	for i, r := range taxonomy {
		out[i] = r.category
	}
	return out
}

var rank = func() map[string]int {
	m := make(map[string]int, len(taxonomy))
	for i, r := range taxonomy {
		m[r.category] = i
	}
	return m
}()

// Rank returns a category's position in the taxonomy. Unknown labels sort
// after every known one.
func Rank(category string) int {
	if i, ok := rank[category]; ok {
		return i
	}
	return len(taxonomy)
}

// Valid reports whether category is a taxonomy label.
func Valid(category string) bool {
	_, ok := rank[category]
	return ok
}
