// Package protocol implements the parsing and serialising of the RouterOS
// management API wire format.
//
// The protocol is word oriented. Everything on the wire is a word, a
// length prefixed UTF-8 string, and words are grouped into sentences.
//
//   - `Word`     - A varint length followed by that many bytes.
//   - `Sentence` - Zero or more words followed by a zero length word.
//   - `Reply`    - The run of sentences answering one command. It always ends
//     with a sentence whose first word is `!done`.
//
// === Length encoding
//
// Word lengths are varints: 7 bits per byte, low order bits first. Every byte
// but the last has the continuation bit (0x80) set.
//
//	```
//	  5     -> 0x05
//	  300   -> 0xac 0x02
//	```
//
// === Commands
//
// A command is a single sentence. The first word is the command path, the
// remaining words are attributes or queries, passed through as is.
//
//	```
//	  /interface/print
//	  ?type=ether
//	```
//
// === Replies
//
//	```
//	  !re   =name=ether1 =type=ether
//	  !re   =name=ether2 =type=ether
//	  !done
//	```
//
// `!re` sentences carry one record each. A failed command has a `!trap`
// sentence before `!done`
//
//	```
//	  !trap =message=no such item
//	  !done
//	```
//
// `!fatal` is sent by the device right before it drops the connection. It is
// not followed by `!done`, so the assembler treats it as the end of a reply
// too.
//
// === Attribute words
//
// `=<key>=<value>`. The key ends at the second `=`, the value is everything
// after it and may itself contain `=`. Values are not unescaped.
package protocol
