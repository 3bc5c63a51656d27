package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemInstruction is used when the prompt template cannot be
// loaded. Keeps the bot functional with a minimal persona.
const DefaultSystemInstruction = "You are a sales attendant for CryptoLock, a vendor of CI/CD pipeline " +
	"security solutions. Keep answers professional, informative and focused on " +
	"the product's benefits. Reply in the user's language (Portuguese or English)."

// promptTemplate mirrors the bundled YAML prompt file layout.
type promptTemplate struct {
	PromptID string `yaml:"prompt_id"`
	Persona  struct {
		Role    string `yaml:"role"`
		Company string `yaml:"company"`
		Product string `yaml:"product"`
		Goal    string `yaml:"goal"`
	} `yaml:"persona"`
	Instructions   []string `yaml:"instructions"`
	ProductContext string   `yaml:"product_context"`
}

// LoadPromptTemplate reads the YAML prompt file and renders it into a
// system instruction. Any failure (missing file, parse error) falls back
// to DefaultSystemInstruction.
func LoadPromptTemplate(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️  Prompt file not found at %s, using default instruction", path)
		return DefaultSystemInstruction
	}

	var tpl promptTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		log.Printf("⚠️  Failed to parse prompt file %s: %v, using default instruction", path, err)
		return DefaultSystemInstruction
	}

	instruction := renderPrompt(&tpl)
	log.Printf("✅ Prompt template loaded: %s", tpl.PromptID)
	return instruction
}

func renderPrompt(tpl *promptTemplate) string {
	role := tpl.Persona.Role
	if role == "" {
		role = "an assistant"
	}
	company := tpl.Persona.Company
	if company == "" {
		company = "CryptoLock"
	}
	product := tpl.Persona.Product
	if product == "" {
		product = "Pipeline Security Posture Management (PSPM)"
	}
	goal := tpl.Persona.Goal
	if goal == "" {
		goal = "Provide product information and sales support"
	}

	var instructions strings.Builder
	for _, instr := range tpl.Instructions {
		instructions.WriteString("- ")
		instructions.WriteString(instr)
		instructions.WriteString("\n")
	}

	return strings.TrimSpace(fmt.Sprintf(`
You are %s at %s.
Your product: %s.
Goal: %s.

CRITICAL INSTRUCTIONS:
%s
PRODUCT CONTEXT:
%s

RESPONSE FORMAT:
- Open with a professional CryptoLock greeting
- Answer focused on the user's need
- Cite documentation details when relevant
- Close proactively with next steps
`, role, company, product, goal, instructions.String(), tpl.ProductContext))
}
