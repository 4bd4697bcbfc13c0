package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Samwindheim/finance-lab-project-v2/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads extraction prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// extractionRules is appended to every default prompt. The no-arithmetic
// rule is load-bearing: the engine never post-processes numeric fields,
// so a computed value would be stored as if the source stated it.
const extractionRules = `Rules:
- Extract ONLY values stated explicitly in the source. Never calculate,
  sum, convert or otherwise derive a value that is not written verbatim.
- Preserve numbers exactly as printed, including thousand separators and
  currency suffixes (e.g. "14,5 MSEK", "1 500 000").
- Omit any field the source does not state. Do not guess.
- Respond with a single JSON object and nothing else.`

// defaultPrompts contains embedded default prompts, keyed by extraction
// field name. These are used when user files don't exist and as the
// initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	"investors": `You are extracting investor commitments from a Swedish financial disclosure (prospectus section or press release) for a rights issue.

Find the section or table listing investor names together with subscription commitments (teckningsåtaganden, teckningsförbindelser) and guarantee commitments (garantiåtaganden, garanti).

Return JSON of the form:
{"investors": [{"name": "...", "amount_in_cash": ..., "amount_in_percentage": ..., "level": ...}]}

- "name" is the investor exactly as written, diacritics preserved.
- "amount_in_cash" and "amount_in_percentage" are the committed amount and share, if stated.
- "level" is 1 for a subscription commitment and 2 for a guarantee commitment, when the document distinguishes them.

` + extractionRules,

	"important_dates": `You are extracting the event timeline of a securities issue from a financial disclosure.

Return JSON of the form:
{"record_date": "...", "sub_start_date": "...", "sub_end_date": "...", "inc_rights_date": "...", "ex_rights_date": "...", "rights_start_date": "...", "rights_end_date": "..."}

- Dates are formatted YYYY-MM-DD.
- "record_date" is avstämningsdagen, "sub_start_date"/"sub_end_date" bound the subscription period (teckningsperiod), "rights_start_date"/"rights_end_date" bound trading in subscription rights (handel med teckningsrätter).
- "inc_rights_date" is the last day of trading including rights, "ex_rights_date" the first day excluding rights.

` + extractionRules,

	"offering_terms": `You are extracting the mechanics of a rights issue from a financial disclosure.

Return JSON of the form:
{"shares_required": ..., "rights_received": ..., "rights_required": ..., "units_received": ..., "shares_in_unit": ..., "unit_sub_price": ..., "offered_units": ...}

- The ratio fields describe the terms as stated, e.g. "en (1) befintlig aktie ger en (1) uniträtt, tre (3) uniträtter ger rätt att teckna en (1) unit" maps to shares_required 1, rights_received 1, rights_required 3, units_received 1.
- "unit_sub_price" is the subscription price per unit (teckningskurs).
- "offered_units" is the number of units offered, if stated.

` + extractionRules,

	"offering_outcome": `You are extracting the published outcome of a rights issue from a financial disclosure (typically an outcome press release, "utfall i företrädesemissionen").

Return JSON of the form:
{"unit_sub_total_pct": ..., "unit_sub_total_count": ..., "total_amount_msek": ..., "pct_with_rights": ..., "pct_without_rights": ..., "pct_guarantor": ..., "unit_sub_with_rights": ..., "unit_sub_without_rights": ..., "unit_sub_guarantor": ...}

- "unit_sub_total_pct" is the total subscription level in percent, "unit_sub_total_count" the total units subscribed.
- "total_amount_msek" is the gross proceeds as stated, e.g. "14,5 MSEK".
- The with_rights/without_rights/guarantor splits cover subscription with rights (med företrädesrätt), without rights (utan företrädesrätt) and via guarantors (garanter), in percent and in units respectively.

` + extractionRules,

	"general_info": `You are extracting security identifiers from a financial disclosure.

Return JSON of the form:
{"isin_units": "...", "isin_rights": "..."}

- "isin_units" is the ISIN of the offered units or shares, "isin_rights" the ISIN of the subscription rights (uniträtter or teckningsrätter).
- ISINs are twelve characters, e.g. "SE0012345678".

` + extractionRules,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.finlab/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".finlab", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Finlab Prompts

This directory contains the extraction prompts, one file per extraction
field. The file name matches the field name.

## Files

- ` + "`investors.txt`" + ` - Investor commitment tables
- ` + "`important_dates.txt`" + ` - Issue event timeline
- ` + "`offering_terms.txt`" + ` - Rights issue mechanics
- ` + "`offering_outcome.txt`" + ` - Published subscription outcome
- ` + "`general_info.txt`" + ` - ISINs and other identifiers

## Customisation

Edit any file to adjust extraction behaviour. Changes take effect on the
next command run.

Keep the no-arithmetic rule in place: the engine stores extracted values
verbatim and never recomputes them, so prompts that allow the model to
derive numbers will silently corrupt the output.
`
	return os.WriteFile(path, []byte(content), 0600)
}
