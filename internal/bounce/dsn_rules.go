package bounce

// dsnRules is evaluated top to bottom against one recipient group; the
// first match wins. Text patterns see the Diagnostic-Code, or the
// explanation when the group has none.
var dsnRules = []Rule{
	// Not failures. Relayed and expanded reports come from MTAs that
	// handed the message on.
	rule("0258", CategoryWarning, action("relayed"),
		sample("Action: relayed")),
	rule("0259", CategoryWarning, action("expanded"),
		sample("Action: expanded")),

	// Quota problems are reported on delay warnings too, so they come
	// before the delayed catch-all.
	rule("0161", CategoryFull, allOf(noRecipient(), explanation(`(?s)quota exceed.*?<{addr}>`)),
		extract(group(1)),
		sample("quota exceeded ... <user@example.com>")),
	rule("0105", CategoryFull, diag(`over.*quota`),
		sample("552 5.2.2 Over quota")),
	rule("0129", CategoryFull, diag(`exceed.*quota|quota.*exceed`),
		sample("552 5.2.2 Quota exceeded (mailbox for user is full)")),
	rule("0145", CategoryFull, diag(`(?:alias|account|recipient|address|email|mailbox|user|inbox)[^\n]*\bfull\b`),
		sample("552 5.2.2 Mailbox full")),
	rule("0246", CategoryFull, diag(`(?:mailbox|inbox|account|user) (?:size|storage|space) limit|exceeded (?:the )?storage allocation`),
		sample("552 5.2.2 Mailbox size limit exceeded")),
	rule("0253", CategoryFull, diag(`(?:insufficient|not enough) (?:system |disk )?(?:storage|space)|disk quota`),
		sample("452 4.3.1 Insufficient system storage")),
	rule("0130", CategoryFull, status("*.2.2"),
		sample("Status: 5.2.2")),

	rule("0252", CategoryDelayed, action("delayed"),
		sample("Action: delayed")),

	rule("0245", CategoryDNSLoop, diag(`too many hops|loops? back to myself|mail loop|routing loop|loop detected|hop count exceeded`),
		sample("554 5.4.6 Too many hops")),
	rule("0247", CategoryDNSUnknown, diag(`host or domain name not found|name service error`),
		sample("Host or domain name not found. Name service error for name=example.invalid type=A: Host not found")),
	rule("0251", CategoryDNSUnknown, diag(`(?:domain|host)(?: name)? (?:does not exist|not found|unknown|lookup failed)|unrouteable (?:mail )?domain|no (?:valid )?mx (?:record|host)s?|no route to (?:host|domain)|domain (?:is )?(?:not )?(?:configured|resolvable)`),
		sample("550 5.1.2 Host unknown (Name server: example.invalid: host not found)")),

	rule("0127", CategoryUnknown, diag(`this user doesn't have a \S+ account`),
		sample("554 delivery error: dd This user doesn't have a yahoo.com account")),
	rule("0103", CategoryUnknown, diag(`(?:user|recipient|mailbox|address|account|addressee)\s+(?:is\s+)?unknown`),
		sample("550 5.1.1 <user@example.com>... User unknown")),
	rule("0193", CategoryUnknown, diag(`unknown\s+(?:local\s+)?(?:user|recipient|mailbox|address|account|alias|local-part)`),
		sample("550 5.1.1 unknown user")),
	rule("0205", CategoryUnknown, diag(`(?:user|recipient|mailbox|address|account)[^\n]{0,60}(?:does not|doesn't|did not|not) exist`),
		sample("550-5.1.1 The email account that you tried to reach does not exist")),
	rule("0128", CategoryUnknown, diag(`no such (?:user|recipient|mailbox|address|account|person|local user)|no (?:user|mailbox) (?:by that name|here)|no mailbox here`),
		sample("550 no such user here")),
	rule("0148", CategoryUnknown, diag(`invalid (?:recipient|mailbox|address|user|account)|(?:recipient|mailbox|address|user|account) (?:is )?invalid|not a valid (?:user|mailbox|recipient)`),
		sample("550 5.1.1 Invalid recipient")),
	rule("0123", CategoryUnknown, diag(`(?:mailbox|recipient) (?:unavailable|not found|not available)|(?:user|address|account) not found|recipientnotfound|recipient not found`),
		sample("550 5.1.1 Requested action not taken: mailbox unavailable")),
	rule("0254", CategoryUnknown, diag(`recipient address rejected|bad (?:destination )?(?:mailbox|address|recipient|user)|mailbox (?:name )?not allowed`),
		sample("554 5.7.1 <user@example.com>: Recipient address rejected: Access denied")),
	rule("0112", CategoryUnknown, diag(`deferred.*no such (?:file|directory)`),
		sample("Deferred: No such file or directory")),

	rule("0125", CategoryInactive, diag(`(?:account|mailbox|user|address|recipient)[^\n]{0,40}(?:inactive|disabled|deactivated|suspended|expired|locked|closed|terminated|no longer (?:active|available|valid|in use))`),
		sample("550 5.2.1 Mailbox disabled, not accepting messages")),

	rule("0143", CategoryAntispam, diag(`blacklist|blocklist|block list|\b(?:rbl|dnsbl)\b|spamhaus|spamcop|barracuda|listed (?:at|in|on) |blocked using|poor reputation`),
		sample("554 5.7.1 Service unavailable; Client host [192.0.2.1] blocked using zen.spamhaus.org")),
	rule("0144", CategoryAntispam, diag(`\b(?:spf|dkim|dmarc)\b[^\n]*(?:fail|reject|policy)`),
		sample("550 5.7.26 Unauthenticated email is not accepted due to the sender domain's DMARC policy")),
	rule("0106", CategoryAntispam, diag(`spam|junk mail|bulk mail|unsolicited`),
		sample("550 5.7.1 Message rejected as spam by Content Filtering")),

	// Refused by the recipient, before the generic refusals below.
	rule("0124", CategoryUserReject, diag(`(?:sender|message|mail) (?:is |was |has been )?(?:blocked|refused|rejected) by (?:the )?(?:recipient|user)|recipient (?:has )?(?:blocked|refused|rejected) (?:you|your|the sender)|does not (?:wish|want) to receive`),
		sample("550 5.7.1 Message refused by recipient")),
	rule("0248", CategoryContentReject, diag(`content (?:was )?rejected|rejected (?:due to|because of) (?:its )?content|message (?:was )?refused|prohibited (?:content|attachment)|banned attachment|(?:virus|malware)[^\n]*(?:detected|found|infected)`),
		sample("554 5.6.0 Message content rejected")),
	rule("0131", CategoryOversize, diag(`message (?:size )?(?:exceeds|too (?:big|large))|(?:size|length) (?:exceeds|exceeded|limit)|message (?:is )?larger than|exceeds? (?:the )?(?:maximum )?(?:message )?size`),
		sample("552 5.3.4 Message size exceeds fixed maximum message size")),
	rule("0132", CategoryLatinOnly, diag(`non-western|non-latin`),
		sample("does not accept mail with non-Western characters")),

	rule("0241", CategoryCommandReject, diag(`relay(?:ing)? (?:access )?(?:denied|not permitted|prohibited)|we do not relay|not (?:a )?(?:permitted|allowed) relay|syntax error|command (?:rejected|unrecognized|not recognized)|bad sequence of commands`),
		sample("554 5.7.1 Relay access denied")),
	rule("0135", CategoryConcurrent, diag(`too many (?:concurrent )?(?:e?smtp )?(?:connections|sessions)|concurrent (?:connection|session) limit|rate limit|too many messages`),
		sample("421 4.7.0 Too many concurrent SMTP connections")),
	rule("0140", CategoryInternalError, diag(`(?:local|internal) (?:error|problem)|system (?:error|failure)|input/output error|resources? temporarily unavailable`),
		sample("451 4.3.0 Local error in processing")),
	rule("0115", CategoryDefer, diag(`deferred[^\n]*connection (?:refused|reset)|(?:connection|connect)[^\n]*(?:timed out|timeout|refused|reset)|try again later|greylist|graylist|temporarily (?:deferred|rejected|unavailable)`),
		sample("Deferred: Connection refused by mx.example.com")),

	// Refinements by status code when the text gave nothing away.
	rule("0261", CategoryUnknown, status("5.1.0", "5.1.1", "5.1.3", "5.1.6"),
		sample("Status: 5.1.1")),
	rule("0262", CategoryDNSUnknown, status("*.1.2", "*.4.4"),
		sample("Status: 5.1.2")),
	rule("0263", CategoryInactive, status("*.2.1"),
		sample("Status: 5.2.1")),
	rule("0264", CategoryOversize, status("*.2.3", "*.3.4"),
		sample("Status: 5.3.4")),
	rule("0265", CategoryDNSLoop, status("*.4.6"),
		sample("Status: 5.4.6")),
	rule("0266", CategoryAntispam, status("*.7.1", "*.7.26"),
		sample("Status: 5.7.1")),
	rule("0267", CategoryDefer, status("*.4.7"),
		sample("Status: 4.4.7")),
	rule("0268", CategoryContentReject, status("*.6.0"),
		sample("Status: 5.6.0")),

	// Class fallbacks. Only a group with no status and no failed action
	// reaches the sentinel.
	rule("0270", CategoryOther, statusClass(5), severity(SeverityHard),
		sample("Status: 5.0.0")),
	rule("0271", CategoryOther, statusClass(4), severity(SeverityTemporary),
		sample("Status: 4.0.0")),
	rule("0272", CategoryOther, action("failed"), severity(SeverityHard),
		sample("Action: failed")),
}
