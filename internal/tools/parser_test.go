package tools

import "testing"

func TestParser_ParsesSingleCall(t *testing.T) {
	p := NewParser([]string{"send_message"})
	text := `Sure, I'll notify them.
<send_message>
  <target_agent_id>admin_ai</target_agent_id>
  <message_content>Done</message_content>
</send_message>
Let me know if you need anything else.`

	calls := p.Parse(text)
	if len(calls) != 1 {
		t.Fatalf("Parse() = %d calls, want 1", len(calls))
	}
	if calls[0].ToolName != "send_message" {
		t.Errorf("ToolName = %q, want send_message", calls[0].ToolName)
	}
	if got := calls[0].Arguments["target_agent_id"]; got != "admin_ai" {
		t.Errorf("target_agent_id = %q, want admin_ai", got)
	}
	if got := calls[0].Arguments["message_content"]; got != "Done" {
		t.Errorf("message_content = %q, want Done", got)
	}
}

func TestParser_ParsesMultipleCallsInOrder(t *testing.T) {
	p := NewParser([]string{"manage_team", "send_message"})
	text := `<manage_team><action>create_team</action><team_id>t1</team_id></manage_team>
prose in between
<send_message><target_agent_id>a1</target_agent_id><message_content>go</message_content></send_message>`

	calls := p.Parse(text)
	if len(calls) != 2 {
		t.Fatalf("Parse() = %d calls, want 2", len(calls))
	}
	if calls[0].ToolName != "manage_team" || calls[1].ToolName != "send_message" {
		t.Errorf("order = %q, %q; want manage_team, send_message", calls[0].ToolName, calls[1].ToolName)
	}
}

func TestParser_UnescapesHTMLEntities(t *testing.T) {
	p := NewParser([]string{"file_system"})
	text := `<file_system><action>write</action><content>a &lt; b &amp;&amp; c &gt; d</content></file_system>`

	calls := p.Parse(text)
	if len(calls) != 1 {
		t.Fatalf("Parse() = %d calls, want 1", len(calls))
	}
	if got, want := calls[0].Arguments["content"], "a < b && c > d"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestParser_IgnoresUnregisteredTags(t *testing.T) {
	p := NewParser([]string{"send_message"})
	text := `<plan>some unrelated markup</plan><other_tag>x</other_tag>`

	if calls := p.Parse(text); len(calls) != 0 {
		t.Errorf("Parse() = %d calls, want 0", len(calls))
	}
}

func TestParser_NoCallsInPlainText(t *testing.T) {
	p := NewParser([]string{"send_message", "file_system", "manage_team"})
	if calls := p.Parse("just some prose with no tool calls at all"); len(calls) != 0 {
		t.Errorf("Parse() = %d calls, want 0", len(calls))
	}
}
