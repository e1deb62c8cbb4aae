package search

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	"github.com/angelmondragon/eshoplite-backend/pkg/openai"
)

// SystemPrompt is the persona sent ahead of every search prompt.
const SystemPrompt = "You are a useful assistant. You always reply with a short and funny message. " +
	"If you do not know an answer, you say 'I don't know that.' " +
	"You only answer questions related to outdoor camping products. " +
	"For any other type of questions, explain to the user that you only answer outdoor camping products questions. " +
	"Do not store memory of the chat conversation."

const (
	noAnswerTemplate = "I don't know the answer for your question. Your question is: [%s]"
	errorTemplate    = "An error occurred: %s"
)

// DescribeProduct renders the text that gets embedded for a product.
func DescribeProduct(p models.Product) string {
	return fmt.Sprintf("[%s] is a product that costs [%s] and is described as [%s]", p.Name, p.Price.String(), p.Description)
}

// FormatProductList renders retrieved products as the numbered block the
// chat model sees.
func FormatProductList(products []models.Product) string {
	var sb strings.Builder
	for i, p := range products {
		fmt.Fprintf(&sb, "- Product %d:\n", i+1)
		fmt.Fprintf(&sb, "  - Name: %s\n", p.Name)
		fmt.Fprintf(&sb, "  - Description: %s\n", p.Description)
		fmt.Fprintf(&sb, "  - Price: %s\n", p.Price.String())
	}
	return sb.String()
}

// BuildUserPrompt composes the instruction sent with the retrieved products.
func BuildUserPrompt(query string, products []models.Product) string {
	return "You are an intelligent assistant helping clients with their search about outdoor products.\n" +
		"Generate a catchy and friendly message using the information below.\n" +
		"Add a comparison between the products found and the search criteria.\n" +
		"Include products details.\n" +
		"    - User Question: " + query + "\n" +
		"    - Found Products:\n" +
		FormatProductList(products)
}

// Messages returns the system persona followed by the composed prompt.
func Messages(query string, products []models.Product) []openai.Message {
	return []openai.Message{
		{Role: enums.ChatRoleSystem, Content: SystemPrompt},
		{Role: enums.ChatRoleUser, Content: BuildUserPrompt(query, products)},
	}
}
