package prescription

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agenthands/medscan/internal/core/model"
	"golang.org/x/text/unicode/norm"
)

const (
	NotSpecified   = "Not specified"
	AsDirected     = "As directed"
	NoMedicineName = "No medicines found"
)

var knownMedicines = []string{
	"paracetamol", "acetaminophen", "ibuprofen", "aspirin", "amoxicillin", "azithromycin",
	"ciprofloxacin", "metformin", "atorvastatin", "amlodipine", "lisinopril", "omeprazole",
	"pantoprazole", "ranitidine", "cetirizine", "loratadine", "prednisolone", "dexamethasone",
	"insulin", "metoprolol", "atenolol", "furosemide", "hydrochlorothiazide", "warfarin",
	"clopidogrel", "simvastatin", "rosuvastatin", "levothyroxine", "gabapentin", "tramadol",
	"morphine", "codeine", "diazepam", "alprazolam", "sertraline", "fluoxetine", "citalopram",
	"amitriptyline", "duloxetine", "venlafaxine", "risperidone", "quetiapine", "olanzapine",
	"haloperidol", "chlorpromazine", "lithium", "carbamazepine", "phenytoin", "valproate",
	"levetiracetam", "topiramate", "lamotrigine", "baclofen", "cyclobenzaprine", "tizanidine",
	"albuterol", "salbutamol", "ipratropium", "budesonide", "fluticasone", "montelukast",
	"digoxin", "verapamil", "diltiazem", "nifedipine", "losartan", "valsartan", "telmisartan",
	"spironolactone", "eplerenone", "bisoprolol", "carvedilol", "propranolol", "timolol",
	"doxycycline", "tetracycline", "erythromycin", "clarithromycin", "vancomycin", "gentamicin",
	"tobramycin", "amikacin", "ceftriaxone", "cefuroxime", "cephalexin", "penicillin",
	"ampicillin", "piperacillin", "meropenem", "imipenem", "ertapenem", "levofloxacin",
	"moxifloxacin", "norfloxacin", "ofloxacin", "trimethoprim", "sulfamethoxazole", "nitrofurantoin",
	"metronidazole", "tinidazole", "fluconazole", "itraconazole", "ketoconazole", "terbinafine",
	"acyclovir", "valacyclovir", "oseltamivir", "ribavirin", "interferon", "hydroxychloroquine",
	"chloroquine", "mefloquine", "doxorubicin", "cyclophosphamide", "methotrexate", "vincristine",
	"paclitaxel", "carboplatin", "cisplatin", "tamoxifen", "anastrozole", "letrozole",
}

var medicineSuffixes = []string{
	"cillin", "mycin", "floxacin", "zole", "pril", "sartan", "statin", "olol", "pine",
	"ide", "ine", "ate", "one", "zine", "pam", "done", "lone", "sone", "tide", "mide",
	"fen", "sal", "mol", "tol", "nol", "dine", "sine", "tine", "rine", "mine", "line",
}

var (
	knownSet = func() map[string]bool {
		m := make(map[string]bool, len(knownMedicines))
		for _, name := range knownMedicines {
			m[name] = true
		}
		return m
	}()

	stopStems = []string{"designin", "whitenin", "smilin", "teethin"}
	stopWords = map[string]bool{
		"smile": true, "design": true, "teeth": true, "white": true, "dental": true, "general": true,
	}

	// letterhead, contact and clinic marketing lines carry no medicines
	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Ph\.[+]\d+.*|Web:.*|Email:.*|www\..*|@.*\.com`),
		regexp.MustCompile(`(?i)Dr\.?\s+[A-Z][a-z]+.*|Doctor.*|Clinic.*|Hospital.*`),
		regexp.MustCompile(`(?i)Smile|Designing|Teeth|Whitening|Dental|Implants|General|Dentistry`),
	}

	medicinePatterns = []*regexp.Regexp{
		// Tab./Cap./Syp. prefix, name, dosage
		regexp.MustCompile(`(?i)(?:Tab\.?|Cap\.?|Syp\.?)\s*([A-Z][a-z]+(?:[A-Z][a-z]*)*)\s*(\d+(?:\.\d+)?\s*(?:mg|ml|mcg|g))`),
		// capitalised name followed by dosage
		regexp.MustCompile(`(?i)\b([A-Z][a-z]{3,}(?:[A-Z][a-z]+)*)\s*(\d+(?:\.\d+)?\s*(?:mg|ml|mcg|g))\b`),
		// known names on their own
		regexp.MustCompile(`(?i)\b(` + knownAlternation() + `)\b`),
	}

	camelCase = regexp.MustCompile(`^[A-Z][a-z]+(?:[A-Z][a-z]+)*$`)
	dosageRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?\s*(?:mg|ml|mcg|g))`)

	frequencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+\s*-\s*\d+\s*-\s*\d+(?:\s*x\s*\d+\s*days?)?)`),
		regexp.MustCompile(`(?i)(once\s+daily|twice\s+daily|thrice\s+daily|OD|BD|TDS)`),
		regexp.MustCompile(`(?i)(before\s+meals?|after\s+meals?|with\s+meals?)`),
		regexp.MustCompile(`(?i)(\d+\s*times?\s*(?:a\s*)?day)`),
	}
)

// knownAlternation lists longer names first so prefixes never shadow them.
func knownAlternation() string {
	names := append([]string(nil), knownMedicines...)
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return strings.Join(names, "|")
}

// NoMedicines is the sentinel returned when nothing was recognized.
func NoMedicines() []model.Medicine {
	return []model.Medicine{{Name: NoMedicineName, Dosage: "-", Frequency: "-"}}
}

// ExtractMedicines pulls (name, dosage, frequency) records out of OCR
// text. Patterns run in order and the first record for a name wins.
func ExtractMedicines(text string) []model.Medicine {
	text = norm.NFKC.String(text)
	for _, p := range noisePatterns {
		text = p.ReplaceAllString(text, "")
	}

	var found []model.Medicine
	for _, p := range medicinePatterns {
		for _, m := range p.FindAllStringSubmatchIndex(text, -1) {
			name := strings.TrimSpace(text[m[2]:m[3]])
			if !isMedicineName(name) {
				continue
			}

			dosage := NotSpecified
			if len(m) >= 6 && m[4] >= 0 {
				dosage = strings.TrimSpace(text[m[4]:m[5]])
			} else if d := dosageRe.FindStringSubmatch(window(text, m[0]-30, m[1]+30)); d != nil {
				dosage = d[1]
			}

			found = append(found, model.Medicine{
				Name:      name,
				Dosage:    dosage,
				Frequency: frequency(window(text, m[0]-50, m[1]+100)),
			})
		}
	}

	seen := make(map[string]bool, len(found))
	var out []model.Medicine
	for _, med := range found {
		key := strings.ToLower(med.Name)
		if seen[key] || len(med.Name) < 4 {
			continue
		}
		seen[key] = true
		out = append(out, med)
	}

	if len(out) == 0 {
		return NoMedicines()
	}
	return out
}

func isMedicineName(name string) bool {
	lower := strings.ToLower(name)

	valid := knownSet[lower] || hasSuffix(lower) || (len(name) >= 6 && camelCase.MatchString(name))
	if !valid {
		return false
	}

	for _, stem := range stopStems {
		if strings.HasPrefix(lower, stem) {
			return false
		}
	}
	return !stopWords[lower]
}

func hasSuffix(lower string) bool {
	for _, s := range medicineSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func frequency(context string) string {
	for _, p := range frequencyPatterns {
		if m := p.FindStringSubmatch(context); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return AsDirected
}

func window(text string, from, to int) string {
	from = max(from, 0)
	to = min(to, len(text))
	if from >= to {
		return ""
	}
	return text[from:to]
}
