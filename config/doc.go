// Package config loads workflow definitions from YAML.
//
// A file names one topology, its participants and the topology specific
// settings:
//
//	topology: groupchat
//	participants:
//	  - name: writer
//	    instruction: You write short marketing copy.
//	    model: {provider: openai, name: gpt-4o-mini}
//	  - name: reviewer
//	    model: {provider: anthropic}
//	groupchat:
//	  selector: {type: round_robin}
//	  max_rounds: 4
//
// Values of the form ${VAR} are expanded from the environment before the
// document is parsed.
package config
