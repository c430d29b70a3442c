// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides the participants of a pandemonium conversation.

# Overview

A Participant is an identity (display name and persona) with private
memory: the messages it has reconciled from the shared log, the highest
ordinal it has seen, and a role-tagged window of recent messages used as
generation context. Text generation itself is delegated to an injected
Responder, so the same struct serves ordinary speakers and the broker.

# Variants

  - NewFixed: a participant with a fixed name and persona
  - NewComposed: temperament × expertise drawn from a Catalog, named
    "<Temperament>_<expertise>"
  - NewBroker: the moderator "BrokerBobby", which speaks the introduction
    and may be scheduled like any other participant

BuildRoster turns a list of "temperament:expertise" specs into a roster,
composing random participants for empty halves and rejecting duplicate
identities.

# Responders

LLMResponder builds a chat request from the always-on prompt, the
persona system prompt, the memory window and a trailing turn instruction,
trimming the oldest window entries to fit the model's context budget.
ResponderFunc adapts a plain function, which is convenient in tests.
*/
package agent
