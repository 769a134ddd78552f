package bot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Replies holds every canned text the bot can send. The defaults can be
// overridden from a YAML file so deployments can rebrand without a
// rebuild.
type Replies struct {
	Help         string `yaml:"help"`
	Info         string `yaml:"info"`
	Usage        string `yaml:"usage"`
	Unconfigured string `yaml:"unconfigured"`
	Thinking     string `yaml:"thinking"`
	Apology      string `yaml:"apology"`
	Fault        string `yaml:"fault"`
}

func DefaultReplies() Replies {
	return Replies{
		Help: "📋 *Available Commands:*\n\n" +
			"!help - Show this help message\n" +
			"!info - Get bot information\n" +
			"!ai <message> - Chat with AI\n\n" +
			"You can also just send me a message and I'll respond with AI!",
		Info: "🤖 *WhatsApp AI Bot*\n\n" +
			"Powered by OpenAI\n\n" +
			"I can help answer questions, have conversations, and assist with various tasks!",
		Usage:        "Please provide a message after !ai command.\nExample: !ai What is the weather like?",
		Unconfigured: "⚠️ OpenAI API key is not configured. Please set WARELAY_OPENAI_API_KEY in environment variables.",
		Thinking:     "🤔 Thinking...",
		Apology:      "Sorry, I had trouble generating a response. Please try again later.",
		Fault:        "Sorry, I encountered an error processing your message. Please try again.",
	}
}

// LoadReplies reads overrides from path on top of the defaults. Empty
// fields in the file keep their default text.
func LoadReplies(path string) (Replies, error) {
	out := DefaultReplies()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Replies{}, fmt.Errorf("read replies file: %w", err)
	}
	var override Replies
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Replies{}, fmt.Errorf("parse replies file: %w", err)
	}
	merge(&out.Help, override.Help)
	merge(&out.Info, override.Info)
	merge(&out.Usage, override.Usage)
	merge(&out.Unconfigured, override.Unconfigured)
	merge(&out.Thinking, override.Thinking)
	merge(&out.Apology, override.Apology)
	merge(&out.Fault, override.Fault)
	return out, nil
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
